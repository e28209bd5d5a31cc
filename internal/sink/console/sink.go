// Package console prints benchmark results for humans.
package console

import (
	"fmt"
	"io"

	"firestige.xyz/pcapbench/internal/core"
)

// names are the method names as printed in human-readable output.
var names = map[core.Method]string{
	core.MethodGzip:         "gzip",
	core.MethodZstd:         "zstandard",
	core.MethodNetSightGzip: "netsight_gzip",
	core.MethodNetSightZstd: "netsight_zstd",
}

// order is the print order: general-purpose first, then NetSight.
var order = []core.Method{core.MethodGzip, core.MethodZstd, core.MethodNetSightGzip, core.MethodNetSightZstd}

type Sink struct {
	w io.Writer
}

func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Send prints one line per metric, or the error for a failed file.
func (s *Sink) Send(res core.BenchmarkResult) error {
	if res.Failed() {
		_, err := fmt.Fprintf(s.w, "%s: error: %v\n", res.File, res.Err)
		return err
	}
	if _, err := fmt.Fprintf(s.w, "%s: %d packets, %d bytes\n", res.File, res.Packets, res.Bytes); err != nil {
		return err
	}
	for _, m := range order {
		mr, ok := res.Result(m)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(s.w, "%s compression rate: %g%%\n%s time consumption: %g μs\n",
			names[m], mr.RatioPercent, names[m], mr.ElapsedMicros); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Close() error {
	return nil
}
