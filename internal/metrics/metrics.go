// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesTotal counts benchmarked capture files by outcome
	FilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcapbench_files_total",
			Help: "Total number of capture files benchmarked",
		},
		[]string{"status"},
	)

	// PacketsTotal counts packets parsed from capture files
	PacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pcapbench_packets_total",
			Help: "Total number of packets parsed from capture files",
		},
	)

	// CompressDurationSeconds measures time spent inside a compressor
	CompressDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pcapbench_compress_duration_seconds",
			Help:    "Time spent compressing one capture file in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 16), // 1µs to ~1h
		},
		[]string{"method"},
	)

	// CompressionRatioPercent tracks the distribution of compression ratios
	CompressionRatioPercent = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pcapbench_compression_ratio_percent",
			Help:    "Compression ratio per file in percent (negative on expansion)",
			Buckets: prometheus.LinearBuckets(-20, 10, 13), // -20% .. 100%
		},
		[]string{"method"},
	)

	// ExternalCodecRunsTotal counts external codec invocations by outcome
	ExternalCodecRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcapbench_external_codec_runs_total",
			Help: "Total number of external codec invocations",
		},
		[]string{"status"},
	)
)

// ObserveMethod records one method's outcome for one file.
func ObserveMethod(method string, ratioPercent, elapsedSeconds float64) {
	CompressDurationSeconds.WithLabelValues(method).Observe(elapsedSeconds)
	CompressionRatioPercent.WithLabelValues(method).Observe(ratioPercent)
}
