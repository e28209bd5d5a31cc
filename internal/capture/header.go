// Package capture reads classic libpcap capture files.
//
// A capture file is a 24-byte global header followed by zero or more
// records, each a 16-byte record header and CaptureLen payload bytes. The
// global header's magic number selects the byte order and the timestamp
// resolution used by every record that follows.
package capture

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pcapbench/internal/core"
)

const (
	globalHeaderLen = 24
	recordHeaderLen = 16
)

// Magic numbers as they read in little-endian order.
const (
	magicMicros        uint32 = 0xa1b2c3d4
	magicMicrosSwapped uint32 = 0xd4c3b2a1
	magicNanos         uint32 = 0xa1b23c4d
	magicNanosSwapped  uint32 = 0x4d3cb2a1
)

// GlobalHeader is the file-level header of a capture.
type GlobalHeader struct {
	Magic        uint32
	ByteOrder    binary.ByteOrder
	Resolution   time.Duration // time.Microsecond or time.Nanosecond
	VersionMajor uint16
	VersionMinor uint16
	ThisZone     int32
	SigFigs      uint32
	SnapLen      uint32
	Network      uint32 // raw link-layer type
}

// LinkType returns the link-layer type as gopacket knows it.
func (h GlobalHeader) LinkType() layers.LinkType {
	return layers.LinkType(h.Network)
}

// Nanosecond reports whether record timestamps carry nanoseconds.
func (h GlobalHeader) Nanosecond() bool {
	return h.Resolution == time.Nanosecond
}

// ParseError describes where a capture stopped making sense.
// Err is one of core.ErrBadMagic, core.ErrTruncatedRecord or
// core.ErrInvalidRecord.
type ParseError struct {
	Offset int // byte offset of the offending header
	Index  int // packet index, -1 for the global header
	Err    error
	Detail string
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	}
	return fmt.Sprintf("%v: packet %d at offset %d: %s", e.Err, e.Index, e.Offset, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// parseGlobalHeader decodes the 24-byte global header at the start of data.
func parseGlobalHeader(data []byte) (GlobalHeader, error) {
	if len(data) < globalHeaderLen {
		return GlobalHeader{}, &ParseError{
			Index:  -1,
			Err:    core.ErrBadMagic,
			Detail: fmt.Sprintf("global header needs %d bytes, have %d", globalHeaderLen, len(data)),
		}
	}

	hdr := GlobalHeader{Magic: binary.LittleEndian.Uint32(data[0:4])}
	switch hdr.Magic {
	case magicMicros:
		hdr.ByteOrder, hdr.Resolution = binary.LittleEndian, time.Microsecond
	case magicMicrosSwapped:
		hdr.ByteOrder, hdr.Resolution = binary.BigEndian, time.Microsecond
	case magicNanos:
		hdr.ByteOrder, hdr.Resolution = binary.LittleEndian, time.Nanosecond
	case magicNanosSwapped:
		hdr.ByteOrder, hdr.Resolution = binary.BigEndian, time.Nanosecond
	default:
		return GlobalHeader{}, &ParseError{
			Index:  -1,
			Err:    core.ErrBadMagic,
			Detail: fmt.Sprintf("magic 0x%08x", hdr.Magic),
		}
	}

	bo := hdr.ByteOrder
	hdr.VersionMajor = bo.Uint16(data[4:6])
	hdr.VersionMinor = bo.Uint16(data[6:8])
	hdr.ThisZone = int32(bo.Uint32(data[8:12]))
	hdr.SigFigs = bo.Uint32(data[12:16])
	hdr.SnapLen = bo.Uint32(data[16:20])
	hdr.Network = bo.Uint32(data[20:24])
	return hdr, nil
}
