// Package sink defines where benchmark results are delivered.
package sink

import "firestige.xyz/pcapbench/internal/core"

// Sink receives benchmark results in report order.
type Sink interface {
	Send(res core.BenchmarkResult) error
	Close() error
}

// SendAll delivers results to s in order and closes it.
func SendAll(s Sink, results []core.BenchmarkResult) error {
	for _, res := range results {
		if err := s.Send(res); err != nil {
			s.Close()
			return err
		}
	}
	return s.Close()
}
