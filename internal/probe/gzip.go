package probe

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"

	"firestige.xyz/pcapbench/internal/core"
)

// Gzip compresses with DEFLATE in a gzip container.
// Levels follow compress/gzip: -2 (Huffman only) through 9.
type Gzip struct{}

func (Gzip) Name() string { return string(core.MethodGzip) }

func (Gzip) DefaultLevel() int { return 6 }

func (Gzip) Compress(data []byte, level int) ([]byte, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("gzip: level %d out of range [%d, %d]", level, gzip.HuffmanOnly, gzip.BestCompression)
	}
	var buf bytes.Buffer
	buf.Grow(len(data) / 2)
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}
