package probe

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"firestige.xyz/pcapbench/internal/core"
)

// Zstd compresses with Zstandard. Levels use the reference 1..22 scale and
// are mapped onto the encoder's speed presets.
type Zstd struct{}

func (Zstd) Name() string { return string(core.MethodZstd) }

func (Zstd) DefaultLevel() int { return 22 }

func (Zstd) Compress(data []byte, level int) ([]byte, error) {
	if level < 1 || level > 22 {
		return nil, fmt.Errorf("zstd: level %d out of range [1, 22]", level)
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}
