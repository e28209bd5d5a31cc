package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pcapbench/internal/core"
)

// record is one hand-built capture record.
type record struct {
	sec, frac, capLen, origLen uint32
	data                       []byte
}

// buildCapture writes a capture with an explicit byte order and magic so
// big-endian and corrupt files can be produced without a writer library.
func buildCapture(bo binary.ByteOrder, magic uint32, snap uint32, recs ...record) []byte {
	var buf bytes.Buffer
	hdr := make([]byte, globalHeaderLen)
	bo.PutUint32(hdr[0:4], magic)
	bo.PutUint16(hdr[4:6], 2)
	bo.PutUint16(hdr[6:8], 4)
	bo.PutUint32(hdr[16:20], snap)
	bo.PutUint32(hdr[20:24], uint32(layers.LinkTypeEthernet))
	buf.Write(hdr)
	for _, r := range recs {
		rh := make([]byte, recordHeaderLen)
		bo.PutUint32(rh[0:4], r.sec)
		bo.PutUint32(rh[4:8], r.frac)
		bo.PutUint32(rh[8:12], r.capLen)
		bo.PutUint32(rh[12:16], r.origLen)
		buf.Write(rh)
		buf.Write(r.data)
	}
	return buf.Bytes()
}

func rec(data []byte) record {
	n := uint32(len(data))
	return record{sec: 1, frac: 2, capLen: n, origLen: n, data: data}
}

// writePcapgo produces a capture through gopacket's own writer.
func writePcapgo(t *testing.T, nanos bool, payloads ...[]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w *pcapgo.Writer
	if nanos {
		w = pcapgo.NewWriterNanos(&buf)
	} else {
		w = pcapgo.NewWriter(&buf)
	}
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	ts := time.Unix(1700000000, 123456789)
	for i, p := range payloads {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(p),
			Length:        len(p),
		}
		require.NoError(t, w.WritePacket(ci, p))
	}
	return buf.Bytes()
}

func TestOpenRecognizesMagics(t *testing.T) {
	tests := []struct {
		name       string
		bo         binary.ByteOrder
		magic      uint32
		wantOrder  binary.ByteOrder
		resolution time.Duration
	}{
		{"little micro", binary.LittleEndian, 0xa1b2c3d4, binary.LittleEndian, time.Microsecond},
		{"big micro", binary.BigEndian, 0xa1b2c3d4, binary.BigEndian, time.Microsecond},
		{"little nano", binary.LittleEndian, 0xa1b23c4d, binary.LittleEndian, time.Nanosecond},
		{"big nano", binary.BigEndian, 0xa1b23c4d, binary.BigEndian, time.Nanosecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildCapture(tt.bo, tt.magic, 65535, rec([]byte{1, 2, 3}))
			f, err := Open(data)
			require.NoError(t, err)

			hdr := f.Header()
			assert.Equal(t, tt.wantOrder, hdr.ByteOrder)
			assert.Equal(t, tt.resolution, hdr.Resolution)
			assert.Equal(t, uint16(2), hdr.VersionMajor)
			assert.Equal(t, uint16(4), hdr.VersionMinor)
			assert.Equal(t, uint32(65535), hdr.SnapLen)
			assert.Equal(t, layers.LinkTypeEthernet, hdr.LinkType())

			pkts, err := f.Collect()
			require.NoError(t, err)
			require.Len(t, pkts, 1)
			assert.Equal(t, []byte{1, 2, 3}, pkts[0].Data)
		})
	}
}

func TestOpenBadMagic(t *testing.T) {
	data := buildCapture(binary.LittleEndian, 0xdeadbeef, 65535, rec([]byte{1}))
	f, err := Open(data)
	assert.Nil(t, f)
	require.ErrorIs(t, err, core.ErrBadMagic)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, -1, perr.Index)
	assert.Contains(t, err.Error(), "0xdeadbeef")
}

func TestOpenShortHeader(t *testing.T) {
	for _, n := range []int{0, 4, globalHeaderLen - 1} {
		_, err := Open(make([]byte, n))
		assert.ErrorIs(t, err, core.ErrBadMagic, "len %d", n)
	}
}

func TestCollectMatchesPcapgo(t *testing.T) {
	payloads := [][]byte{
		{0x00, 0x01, 0x02},
		bytes.Repeat([]byte{0xff}, 1500),
		{},
		[]byte("hello capture"),
	}
	for _, nanos := range []bool{false, true} {
		data := writePcapgo(t, nanos, payloads...)

		f, err := Open(data)
		require.NoError(t, err)
		assert.Equal(t, nanos, f.Header().Nanosecond())

		pkts, err := f.Collect()
		require.NoError(t, err)
		require.Len(t, pkts, len(payloads))

		ref, err := pcapgo.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		for i, p := range pkts {
			refData, refCI, err := ref.ReadPacketData()
			require.NoError(t, err)
			assert.Equal(t, i, p.Index)
			assert.Equal(t, refData, p.Data)
			assert.Equal(t, len(payloads[i]), len(p.Data))
			assert.Equal(t, refCI.CaptureLength, p.CaptureInfo().CaptureLength)
			assert.True(t, refCI.Timestamp.Equal(p.Timestamp), "packet %d: %v != %v", i, refCI.Timestamp, p.Timestamp)
		}
		_, _, err = ref.ReadPacketData()
		assert.Equal(t, io.EOF, err)
	}
}

func TestSingleZeroPacket(t *testing.T) {
	data := writePcapgo(t, false, make([]byte, 14))

	f, err := Open(data)
	require.NoError(t, err)
	pkts, err := f.Collect()
	require.NoError(t, err)
	require.Len(t, pkts, 1)
	assert.Equal(t, uint32(14), pkts[0].CaptureLen)
	assert.Equal(t, bytes.Repeat([]byte{0x00}, 14), pkts[0].Data)
}

func TestEmptyCaptureHasNoPackets(t *testing.T) {
	data := buildCapture(binary.LittleEndian, magicMicros, 65535)
	f, err := Open(data)
	require.NoError(t, err)

	n, err := f.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.Packets().Next()
	assert.Equal(t, io.EOF, err)
}

func TestTruncatedPayload(t *testing.T) {
	full := buildCapture(binary.LittleEndian, magicMicros, 65535, rec([]byte{1, 2, 3}), rec([]byte{4, 5, 6, 7}))
	data := full[:len(full)-2]

	f, err := Open(data)
	require.NoError(t, err)
	seq := f.Packets()

	p, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p.Data)

	p, err = seq.Next()
	require.ErrorIs(t, err, core.ErrTruncatedRecord)
	assert.Nil(t, p.Data)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Index)
	assert.Equal(t, globalHeaderLen+recordHeaderLen+3, perr.Offset)

	// The sequence stays failed.
	_, again := seq.Next()
	assert.Equal(t, err, again)

	pkts, err := f.Collect()
	assert.ErrorIs(t, err, core.ErrTruncatedRecord)
	assert.Nil(t, pkts)
}

func TestTruncatedRecordHeader(t *testing.T) {
	full := buildCapture(binary.BigEndian, magicMicros, 65535, rec([]byte{9}))
	for cut := 1; cut < recordHeaderLen; cut++ {
		data := append(append([]byte{}, full...), make([]byte, cut)...)
		f, err := Open(data)
		require.NoError(t, err)
		_, err = f.Collect()
		assert.ErrorIs(t, err, core.ErrTruncatedRecord, "trailing %d bytes", cut)
	}
}

func TestHugeCaptureLengthDoesNotAllocate(t *testing.T) {
	data := buildCapture(binary.LittleEndian, magicMicros, 0,
		record{capLen: 0xfffffff0, origLen: 0xfffffff0, data: []byte{1, 2}})
	f, err := Open(data)
	require.NoError(t, err)
	_, err = f.Packets().Next()
	assert.ErrorIs(t, err, core.ErrTruncatedRecord)
}

func TestInvalidLengths(t *testing.T) {
	tests := []struct {
		name string
		snap uint32
		r    record
	}{
		{"caplen over origlen", 65535, record{capLen: 4, origLen: 3, data: []byte{1, 2, 3, 4}}},
		{"caplen over snaplen", 2, record{capLen: 4, origLen: 4, data: []byte{1, 2, 3, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Open(buildCapture(binary.LittleEndian, magicMicros, tt.snap, tt.r))
			require.NoError(t, err)
			_, err = f.Collect()
			assert.ErrorIs(t, err, core.ErrInvalidRecord)
		})
	}
}

func TestSnapLenZeroIsUnlimited(t *testing.T) {
	f, err := Open(buildCapture(binary.LittleEndian, magicMicros, 0, rec(make([]byte, 300))))
	require.NoError(t, err)
	n, err := f.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTimestampResolution(t *testing.T) {
	micro, err := Open(buildCapture(binary.LittleEndian, magicMicros, 0,
		record{sec: 10, frac: 250, capLen: 1, origLen: 1, data: []byte{0}}))
	require.NoError(t, err)
	p, err := micro.Packets().Next()
	require.NoError(t, err)
	assert.Equal(t, time.Unix(10, 250_000).UTC(), p.Timestamp)

	nano, err := Open(buildCapture(binary.BigEndian, magicNanos, 0,
		record{sec: 10, frac: 250, capLen: 1, origLen: 1, data: []byte{0}}))
	require.NoError(t, err)
	p, err = nano.Packets().Next()
	require.NoError(t, err)
	assert.Equal(t, time.Unix(10, 250).UTC(), p.Timestamp)
}

func TestPacketsIsRestartable(t *testing.T) {
	f, err := Open(writePcapgo(t, false, []byte{1}, []byte{2}, []byte{3}))
	require.NoError(t, err)

	first, err := f.Collect()
	require.NoError(t, err)
	second, err := f.Collect()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPacketDataIsCapped(t *testing.T) {
	f, err := Open(writePcapgo(t, false, []byte{1, 2}, []byte{3, 4}))
	require.NoError(t, err)
	pkts, err := f.Collect()
	require.NoError(t, err)

	// Appending to one view must not overwrite the next record.
	_ = append(pkts[0].Data, 0xee, 0xee)
	again, err := f.Collect()
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4}, again[1].Data)
}

func TestSequenceAsPacketDataSource(t *testing.T) {
	eth := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
		0x88, 0xb5, // local experimental EtherType
		0xde, 0xad,
	}
	f, err := Open(writePcapgo(t, false, eth))
	require.NoError(t, err)

	src := gopacket.NewPacketSource(f.Packets(), f.Header().LinkType())
	pkt, err := src.NextPacket()
	require.NoError(t, err)
	assert.Equal(t, len(eth), pkt.Metadata().CaptureLength)
	require.NotNil(t, pkt.Layer(layers.LayerTypeEthernet))

	_, err = src.NextPacket()
	assert.Equal(t, io.EOF, err)
}

func TestCopyPayloads(t *testing.T) {
	f, err := Open(writePcapgo(t, false, []byte{0x00, 0xff}, []byte{}, []byte{0x7f}))
	require.NoError(t, err)
	pkts, err := f.Collect()
	require.NoError(t, err)

	copies := CopyPayloads(pkts)
	require.Len(t, copies, 3)
	assert.Equal(t, []byte{0x00, 0xff}, copies[0])
	assert.Empty(t, copies[1])
	assert.Equal(t, []byte{0x7f}, copies[2])

	copies[0][0] = 0x42
	assert.Equal(t, byte(0x00), pkts[0].Data[0])
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.pcap")
	require.NoError(t, os.WriteFile(path, writePcapgo(t, false, []byte{1, 2, 3}), 0o644))

	f, err := ReadFile(path)
	require.NoError(t, err)
	n, err := f.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = ReadFile(filepath.Join(dir, "missing.pcap"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.pcap")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ReadFile(empty)
	assert.ErrorIs(t, err, core.ErrBadMagic)
}
