package capture

import (
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/google/gopacket"

	"firestige.xyz/pcapbench/internal/core"
)

// Packet is one capture record. Data is a view into the file buffer, not a
// copy; use CopyPayloads before handing payloads to another owner.
type Packet struct {
	Index      int
	Offset     int // byte offset of the record header
	Seconds    uint32
	Fraction   uint32 // micro- or nanoseconds, per GlobalHeader.Resolution
	Timestamp  time.Time
	CaptureLen uint32
	OrigLen    uint32
	Data       []byte
}

// CaptureInfo returns the record metadata in gopacket's form.
func (p Packet) CaptureInfo() gopacket.CaptureInfo {
	return gopacket.CaptureInfo{
		Timestamp:     p.Timestamp,
		CaptureLength: int(p.CaptureLen),
		Length:        int(p.OrigLen),
	}
}

// File is an immutable capture buffer with its decoded global header.
type File struct {
	data   []byte
	header GlobalHeader
}

// Open validates the global header of data. The buffer is borrowed, not
// copied, and must not be modified while the File is in use.
func Open(data []byte) (*File, error) {
	hdr, err := parseGlobalHeader(data)
	if err != nil {
		return nil, err
	}
	return &File{data: data, header: hdr}, nil
}

// ReadFile reads path fully and opens it.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture %s: %w", path, err)
	}
	f, err := Open(data)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", path, err)
	}
	return f, nil
}

// Header returns the decoded global header.
func (f *File) Header() GlobalHeader { return f.header }

// Bytes returns the whole raw file, headers included.
func (f *File) Bytes() []byte { return f.data }

// Size returns the file size in bytes.
func (f *File) Size() int { return len(f.data) }

// Packets returns a new sequence positioned at the first record. Every call
// starts over.
func (f *File) Packets() *Sequence {
	return &Sequence{file: f, off: globalHeaderLen}
}

// Collect walks the whole file and returns every packet in order.
// Nothing is returned if any record is malformed.
func (f *File) Collect() ([]Packet, error) {
	var pkts []Packet
	for p, err := range f.Packets().All() {
		if err != nil {
			return nil, err
		}
		pkts = append(pkts, p)
	}
	return pkts, nil
}

// Count walks the file and returns the number of records.
func (f *File) Count() (int, error) {
	n := 0
	for _, err := range f.Packets().All() {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Sequence is a lazy, single-pass walk over the records of a File.
// After the first error every call to Next returns that same error.
type Sequence struct {
	file  *File
	off   int
	index int
	err   error
}

// Next returns the next packet, or io.EOF once the buffer ends exactly on a
// record boundary.
func (s *Sequence) Next() (Packet, error) {
	if s.err != nil {
		return Packet{}, s.err
	}
	p, err := s.next()
	if err != nil {
		s.err = err
		return Packet{}, err
	}
	return p, nil
}

// ReadPacketData implements gopacket.PacketDataSource.
func (s *Sequence) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	p, err := s.Next()
	if err != nil {
		return nil, gopacket.CaptureInfo{}, err
	}
	return p.Data, p.CaptureInfo(), nil
}

// All yields the remaining packets. A parse error is yielded once and ends
// the iteration; a clean end yields nothing.
func (s *Sequence) All() iter.Seq2[Packet, error] {
	return func(yield func(Packet, error) bool) {
		for {
			p, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(p, err) || err != nil {
				return
			}
		}
	}
}

func (s *Sequence) next() (Packet, error) {
	buf := s.file.data
	hdr := s.file.header

	remain := len(buf) - s.off
	if remain == 0 {
		return Packet{}, io.EOF
	}
	if remain < recordHeaderLen {
		return Packet{}, s.fail(core.ErrTruncatedRecord,
			"record header needs %d bytes, %d remain", recordHeaderLen, remain)
	}

	rec := buf[s.off : s.off+recordHeaderLen]
	bo := hdr.ByteOrder
	sec := bo.Uint32(rec[0:4])
	frac := bo.Uint32(rec[4:8])
	capLen := bo.Uint32(rec[8:12])
	origLen := bo.Uint32(rec[12:16])

	if capLen > origLen {
		return Packet{}, s.fail(core.ErrInvalidRecord,
			"captured length %d exceeds original length %d", capLen, origLen)
	}
	// A zero snapshot length is written by some tools to mean "unlimited".
	if hdr.SnapLen != 0 && capLen > hdr.SnapLen {
		return Packet{}, s.fail(core.ErrInvalidRecord,
			"captured length %d exceeds snapshot length %d", capLen, hdr.SnapLen)
	}

	start := s.off + recordHeaderLen
	if uint64(capLen) > uint64(len(buf)-start) {
		return Packet{}, s.fail(core.ErrTruncatedRecord,
			"payload needs %d bytes, %d remain", capLen, len(buf)-start)
	}
	end := start + int(capLen)

	p := Packet{
		Index:      s.index,
		Offset:     s.off,
		Seconds:    sec,
		Fraction:   frac,
		Timestamp:  time.Unix(int64(sec), int64(frac)*int64(hdr.Resolution)).UTC(),
		CaptureLen: capLen,
		OrigLen:    origLen,
		Data:       buf[start:end:end],
	}
	s.off = end
	s.index++
	return p, nil
}

func (s *Sequence) fail(kind error, format string, args ...any) error {
	return &ParseError{
		Offset: s.off,
		Index:  s.index,
		Err:    kind,
		Detail: fmt.Sprintf(format, args...),
	}
}

// CopyPayloads copies packet data out of the shared file buffer into one
// freshly owned backing array. Lengths were validated while parsing, so the
// allocation is bounded by the file size.
func CopyPayloads(pkts []Packet) [][]byte {
	total := 0
	for _, p := range pkts {
		total += len(p.Data)
	}
	backing := make([]byte, 0, total)
	out := make([][]byte, len(pkts))
	for i, p := range pkts {
		start := len(backing)
		backing = append(backing, p.Data...)
		out[i] = backing[start:len(backing):len(backing)]
	}
	return out
}
