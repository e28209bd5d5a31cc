// Package csvfile writes the aggregated comma-separated benchmark report.
package csvfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"firestige.xyz/pcapbench/internal/core"
)

// ErrorMarker fills every metric column of a failed file's row.
const ErrorMarker = "error"

const separator = ", "

// Header returns the fixed report header, one ratio and one time column
// per method in core.Methods order.
func Header() string {
	cols := []string{"file"}
	for _, m := range core.Methods {
		cols = append(cols, string(m)+" c_ratio", string(m)+" c_t")
	}
	return strings.Join(cols, separator)
}

// Sink writes one row per result after a header line. The header is
// written even when no result is sent.
type Sink struct {
	w        *bufio.Writer
	closer   io.Closer
	wroteHdr bool
}

// NewSink writes the report to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: bufio.NewWriter(w)}
}

// Create writes the report to a new file at path.
func Create(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	s := NewSink(f)
	s.closer = f
	return s, nil
}

func (s *Sink) Send(res core.BenchmarkResult) error {
	if err := s.header(); err != nil {
		return err
	}
	_, err := s.w.WriteString(Row(res) + "\n")
	return err
}

func (s *Sink) Close() error {
	err := s.header()
	if ferr := s.w.Flush(); err == nil {
		err = ferr
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Sink) header() error {
	if s.wroteHdr {
		return nil
	}
	s.wroteHdr = true
	_, err := s.w.WriteString(Header() + "\n")
	return err
}

// Row formats one report row without the trailing newline.
func Row(res core.BenchmarkResult) string {
	cols := []string{quote(filepath.Base(res.File))}
	for _, m := range core.Methods {
		mr, ok := res.Result(m)
		if res.Failed() || !ok {
			cols = append(cols, ErrorMarker, ErrorMarker)
			continue
		}
		cols = append(cols, formatFloat(mr.RatioPercent), formatFloat(mr.ElapsedMicros))
	}
	return strings.Join(cols, separator)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quote(field string) string {
	if !strings.ContainsAny(field, ",\"\r\n") && strings.TrimSpace(field) == field {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
