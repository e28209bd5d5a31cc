// Package bench drives compression benchmarks over capture files.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"firestige.xyz/pcapbench/internal/capture"
	"firestige.xyz/pcapbench/internal/config"
	"firestige.xyz/pcapbench/internal/core"
	"firestige.xyz/pcapbench/internal/metrics"
	"firestige.xyz/pcapbench/internal/netsight"
	"firestige.xyz/pcapbench/internal/probe"
)

// Options is the read-only configuration shared by every file of a run.
type Options struct {
	GzipLevel int
	ZstdLevel int
	Codec     netsight.ExternalCodec
	Workers   int    // 0 = min(files, GOMAXPROCS)
	Extension string // directory mode filter, e.g. ".pcap"
}

// OptionsFromConfig builds run options from the loaded configuration.
func OptionsFromConfig(cfg *config.GlobalConfig) Options {
	return Options{
		GzipLevel: cfg.Bench.GzipLevel,
		ZstdLevel: cfg.Bench.ZstdLevel,
		Codec:     netsight.NewTool(cfg.NetSight.Tool, cfg.NetSight.TimeoutDuration()),
		Workers:   cfg.Bench.Workers,
		Extension: cfg.Bench.Extension,
	}
}

// Runner benchmarks capture files. It holds no mutable state and is safe
// for concurrent use.
type Runner struct {
	opts Options
	gzip probe.Backend
	zstd probe.Backend
}

// NewRunner validates opts and resolves the compression backends.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("%w: external codec is required", core.ErrConfigInvalid)
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must be >= 0", core.ErrConfigInvalid)
	}
	if opts.Extension == "" {
		opts.Extension = ".pcap"
	}
	gz, err := probe.Lookup(string(core.MethodGzip))
	if err != nil {
		return nil, err
	}
	zs, err := probe.Lookup(string(core.MethodZstd))
	if err != nil {
		return nil, err
	}
	return &Runner{opts: opts, gzip: gz, zstd: zs}, nil
}

// RunFile benchmarks one capture file. Any failure aborts the file.
func (r *Runner) RunFile(ctx context.Context, path string) (core.BenchmarkResult, error) {
	res, err := r.runFile(ctx, path)
	if err != nil {
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		return core.BenchmarkResult{File: path, Err: err}, err
	}
	metrics.FilesTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (r *Runner) runFile(ctx context.Context, path string) (core.BenchmarkResult, error) {
	if err := ctx.Err(); err != nil {
		return core.BenchmarkResult{}, err
	}
	start := time.Now()

	f, err := capture.ReadFile(path)
	if err != nil {
		return core.BenchmarkResult{}, err
	}
	pkts, err := f.Collect()
	if err != nil {
		return core.BenchmarkResult{}, fmt.Errorf("capture %s: %w", path, err)
	}
	metrics.PacketsTotal.Add(float64(len(pkts)))

	res := core.BenchmarkResult{
		File:    path,
		Packets: len(pkts),
		Bytes:   f.Size(),
		Results: make(map[core.Method]core.MethodResult, len(core.Methods)),
	}

	gz, err := probe.Measure(r.gzip, f.Bytes(), r.opts.GzipLevel)
	if err != nil {
		return core.BenchmarkResult{}, err
	}
	res.Results[core.MethodGzip] = gz.Result()

	zs, err := probe.Measure(r.zstd, f.Bytes(), r.opts.ZstdLevel)
	if err != nil {
		return core.BenchmarkResult{}, err
	}
	res.Results[core.MethodZstd] = zs.Result()

	rep, err := netsight.Run(ctx, r.opts.Codec, netsight.SidePath(path), capture.CopyPayloads(pkts))
	if err != nil {
		return core.BenchmarkResult{}, fmt.Errorf("netsight %s: %w", path, err)
	}
	ns, err := rep.Results()
	if err != nil {
		return core.BenchmarkResult{}, fmt.Errorf("netsight %s: %w", path, err)
	}
	for m, mr := range ns {
		res.Results[m] = mr
		metrics.ObserveMethod(string(m), mr.RatioPercent, mr.ElapsedMicros/1e6)
	}

	slog.Debug("file benchmarked", "file", path, "packets", res.Packets, "bytes", res.Bytes, "elapsed", time.Since(start))
	return res, nil
}

// ListCaptures returns the regular files in dir whose names end with the
// configured extension, in lexical order.
func (r *Runner) ListCaptures(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), r.opts.Extension) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// RunDir benchmarks every capture in dir with bounded parallelism. A file
// that fails becomes an error row; it does not stop the batch. Rows are
// returned in listing order regardless of completion order. The returned
// error is non-nil only if the directory cannot be listed or ctx ends.
func (r *Runner) RunDir(ctx context.Context, dir string) ([]core.BenchmarkResult, error) {
	files, err := r.ListCaptures(dir)
	if err != nil {
		return nil, err
	}
	return r.RunFiles(ctx, files)
}

// RunFiles is RunDir over an explicit file list.
func (r *Runner) RunFiles(ctx context.Context, files []string) ([]core.BenchmarkResult, error) {
	results := make([]core.BenchmarkResult, len(files))
	if len(files) == 0 {
		return results, nil
	}

	workers := r.workers(len(files))
	slog.Info("benchmarking captures", "files", len(files), "workers", workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			res, err := r.RunFile(ctx, path)
			if err != nil {
				slog.Warn("capture failed", "file", path, "malformed", IsCaptureError(err), "error", err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) workers(files int) int {
	n := r.opts.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(1, min(n, files))
}

// Run dispatches on path: a directory runs RunDir, anything else RunFile.
func (r *Runner) Run(ctx context.Context, path string) ([]core.BenchmarkResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return r.RunDir(ctx, path)
	}
	res, err := r.RunFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return []core.BenchmarkResult{res}, nil
}

// Failures counts error rows.
func Failures(results []core.BenchmarkResult) int {
	n := 0
	for _, res := range results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// IsCaptureError reports whether err came from a malformed capture rather
// than the environment.
func IsCaptureError(err error) bool {
	return errors.Is(err, core.ErrBadMagic) ||
		errors.Is(err, core.ErrTruncatedRecord) ||
		errors.Is(err, core.ErrInvalidRecord)
}
