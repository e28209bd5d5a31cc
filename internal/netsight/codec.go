// Package netsight bridges packet payloads to the external NetSight
// compressor. Payloads are written as hex text to a side file, the tool is
// run on that file, and its fixed textual report is parsed.
package netsight

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"firestige.xyz/pcapbench/internal/metrics"
)

// SideFileSuffix is appended to a capture path to name its hex text file.
const SideFileSuffix = ".ns"

// ExternalCodec is the seam between the benchmark and an out-of-process
// packet compressor.
type ExternalCodec interface {
	// Encode writes payloads in the codec's input format.
	Encode(w io.Writer, payloads [][]byte) error
	// Invoke runs the codec over the encoded file at path.
	Invoke(ctx context.Context, path string) (RawReport, error)
	// ParseReport turns the codec's output into a Report.
	ParseReport(raw RawReport) (Report, error)
}

// SidePath returns the side file path for a capture file.
func SidePath(capturePath string) string {
	return capturePath + SideFileSuffix
}

// Run encodes payloads into sidePath, invokes the codec on it and parses
// the result. The side file is removed before Run returns, whatever the
// outcome.
func Run(ctx context.Context, codec ExternalCodec, sidePath string, payloads [][]byte) (Report, error) {
	abs, err := filepath.Abs(sidePath)
	if err != nil {
		return Report{}, fmt.Errorf("failed to resolve side file %s: %w", sidePath, err)
	}
	if err := writeSideFile(codec, abs, payloads); err != nil {
		return Report{}, err
	}
	defer func() {
		if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove side file", "path", abs, "error", err)
		}
	}()

	raw, err := codec.Invoke(ctx, abs)
	if err != nil {
		metrics.ExternalCodecRunsTotal.WithLabelValues("failed").Inc()
		return Report{}, err
	}
	rep, err := codec.ParseReport(raw)
	if err != nil {
		metrics.ExternalCodecRunsTotal.WithLabelValues("malformed").Inc()
		return Report{}, err
	}
	metrics.ExternalCodecRunsTotal.WithLabelValues("ok").Inc()
	return rep, nil
}

func writeSideFile(codec ExternalCodec, path string, payloads [][]byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create side file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close side file: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := bufio.NewWriterSize(f, 64<<10)
	if err := codec.Encode(w, payloads); err != nil {
		return fmt.Errorf("failed to encode side file: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write side file: %w", err)
	}
	slog.Debug("side file written", "path", path, "packets", len(payloads))
	return nil
}
