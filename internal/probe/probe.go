package probe

import (
	"fmt"
	"time"

	"firestige.xyz/pcapbench/internal/core"
	"firestige.xyz/pcapbench/internal/metrics"
)

// Measurement is the outcome of one compression call.
type Measurement struct {
	Method         string
	Level          int
	OriginalSize   int
	CompressedSize int
	RatioPercent   float64
	Elapsed        time.Duration
}

// ElapsedMicros returns the compression time in microseconds.
func (m Measurement) ElapsedMicros() float64 {
	return float64(m.Elapsed) / float64(time.Microsecond)
}

// Result converts the measurement into a report entry.
func (m Measurement) Result() core.MethodResult {
	return core.MethodResult{
		Method:        core.Method(m.Method),
		RatioPercent:  m.RatioPercent,
		ElapsedMicros: m.ElapsedMicros(),
	}
}

// Ratio returns (original - compressed) / original * 100. It is negative
// when the compressed form is larger.
func Ratio(original, compressed int) (float64, error) {
	if original == 0 {
		return 0, core.ErrEmptyInput
	}
	return float64(original-compressed) / float64(original) * 100, nil
}

// Measure compresses data once with b at level. Only the compress call is
// timed.
func Measure(b Backend, data []byte, level int) (Measurement, error) {
	if len(data) == 0 {
		return Measurement{}, fmt.Errorf("%s: %w", b.Name(), core.ErrEmptyInput)
	}

	start := time.Now()
	out, err := b.Compress(data, level)
	elapsed := time.Since(start)
	if err != nil {
		return Measurement{}, err
	}

	ratio, _ := Ratio(len(data), len(out))
	m := Measurement{
		Method:         b.Name(),
		Level:          level,
		OriginalSize:   len(data),
		CompressedSize: len(out),
		RatioPercent:   ratio,
		Elapsed:        elapsed,
	}
	metrics.ObserveMethod(m.Method, m.RatioPercent, elapsed.Seconds())
	return m, nil
}

// MeasureByName looks up the backend and measures it.
func MeasureByName(name string, data []byte, level int) (Measurement, error) {
	b, err := Lookup(name)
	if err != nil {
		return Measurement{}, err
	}
	return Measure(b, data, level)
}
