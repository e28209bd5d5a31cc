package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// DefaultSnapLen is the snapshot length written when every payload fits.
const DefaultSnapLen = 65536

// Write emits a microsecond-resolution capture holding payloads as whole
// packets. Timestamps count up one microsecond per packet from the epoch,
// since hex text carries no timing.
func Write(w io.Writer, linkType layers.LinkType, payloads [][]byte) error {
	snap := uint32(DefaultSnapLen)
	for _, p := range payloads {
		snap = max(snap, uint32(len(p)))
	}

	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snap, linkType); err != nil {
		return fmt.Errorf("failed to write capture header: %w", err)
	}
	for i, p := range payloads {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(0, int64(i)*int64(time.Microsecond)).UTC(),
			CaptureLength: len(p),
			Length:        len(p),
		}
		if err := pw.WritePacket(ci, p); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	return nil
}
