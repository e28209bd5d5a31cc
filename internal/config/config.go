// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pcapbench/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `pcapbench:` root key in YAML.
type GlobalConfig struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Bench    BenchConfig    `mapstructure:"bench" yaml:"bench"`
	NetSight NetSightConfig `mapstructure:"netsight" yaml:"netsight"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// ─── Benchmark ───

// BenchConfig controls the general-purpose compressors and directory runs.
type BenchConfig struct {
	GzipLevel int    `mapstructure:"gzip_level" yaml:"gzip_level"` // -2..9
	ZstdLevel int    `mapstructure:"zstd_level" yaml:"zstd_level"` // 1..22
	Workers   int    `mapstructure:"workers" yaml:"workers"`       // 0 = auto (GOMAXPROCS)
	Extension string `mapstructure:"extension" yaml:"extension"`   // capture file suffix in directory mode
	Report    string `mapstructure:"report" yaml:"report"`         // CSV report path in directory mode
}

// ─── External codec ───

// NetSightConfig locates the external NetSight compressor.
type NetSightConfig struct {
	Tool    string `mapstructure:"tool" yaml:"tool"`
	Timeout string `mapstructure:"timeout" yaml:"timeout"` // e.g. "5m"
}

// TimeoutDuration returns the parsed invocation timeout.
// Only valid after ValidateAndApplyDefaults.
func (c NetSightConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

const rootKey = "pcapbench"

// configRoot is the top-level wrapper matching the YAML structure `pcapbench: ...`.
type configRoot struct {
	PcapBench GlobalConfig `mapstructure:"pcapbench" yaml:"pcapbench"`
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"gzip-level": "bench.gzip_level",
	"zstd-level": "bench.zstd_level",
	"workers":    "bench.workers",
	"extension":  "bench.extension",
	"output":     "bench.report",
	"tool":       "netsight.tool",
	"timeout":    "netsight.timeout",
	"metrics":    "metrics.enabled",
}

// Load loads configuration from file. An empty path yields defaults plus
// environment overrides (PCAPBENCH_BENCH_WORKERS and so on).
func Load(path string) (*GlobalConfig, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags is Load with command-line overrides. Only flags in fs that
// were set explicitly take precedence over the file.
func LoadWithFlags(path string, fs *pflag.FlagSet) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "pcapbench.bench.workers" → env "PCAPBENCH_BENCH_WORKERS"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.PcapBench

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(rootKey+"."+key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default values for configuration.
// All keys use the "pcapbench." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("pcapbench.log.level", "info")
	v.SetDefault("pcapbench.log.format", "text")
	v.SetDefault("pcapbench.log.outputs.file.enabled", false)
	v.SetDefault("pcapbench.log.outputs.file.path", "pcapbench.log")
	v.SetDefault("pcapbench.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("pcapbench.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("pcapbench.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("pcapbench.log.outputs.file.rotation.compress", true)

	// Benchmark defaults, matching the levels the NetSight study used
	v.SetDefault("pcapbench.bench.gzip_level", 6)
	v.SetDefault("pcapbench.bench.zstd_level", 22)
	v.SetDefault("pcapbench.bench.workers", 0)
	v.SetDefault("pcapbench.bench.extension", ".pcap")
	v.SetDefault("pcapbench.bench.report", "report.csv")

	// External codec defaults
	v.SetDefault("pcapbench.netsight.tool", "./ns_compress")
	v.SetDefault("pcapbench.netsight.timeout", "5m")

	// Metrics defaults
	v.SetDefault("pcapbench.metrics.enabled", false)
	v.SetDefault("pcapbench.metrics.listen", ":9091")
	v.SetDefault("pcapbench.metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and normalizes values.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return invalid("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return invalid("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return invalid("log.outputs.file.path is required when file output is enabled")
	}

	// ── Bench validation ──
	if cfg.Bench.GzipLevel < -2 || cfg.Bench.GzipLevel > 9 {
		return invalid("bench.gzip_level %d out of range [-2, 9]", cfg.Bench.GzipLevel)
	}
	if cfg.Bench.ZstdLevel < 1 || cfg.Bench.ZstdLevel > 22 {
		return invalid("bench.zstd_level %d out of range [1, 22]", cfg.Bench.ZstdLevel)
	}
	if cfg.Bench.Workers < 0 {
		return invalid("bench.workers must be >= 0, got %d", cfg.Bench.Workers)
	}
	if cfg.Bench.Extension == "" {
		return invalid("bench.extension is required")
	}
	if !strings.HasPrefix(cfg.Bench.Extension, ".") {
		cfg.Bench.Extension = "." + cfg.Bench.Extension
	}
	if cfg.Bench.Report == "" {
		return invalid("bench.report is required")
	}

	// ── NetSight validation ──
	if cfg.NetSight.Tool == "" {
		return invalid("netsight.tool is required")
	}
	d, err := time.ParseDuration(cfg.NetSight.Timeout)
	if err != nil {
		return invalid("netsight.timeout: %v", err)
	}
	if d <= 0 {
		return invalid("netsight.timeout must be positive, got %s", cfg.NetSight.Timeout)
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return invalid("metrics.listen is required when metrics.enabled=true")
	}
	return nil
}

// Dump renders cfg as YAML under the `pcapbench:` root key.
func Dump(cfg *GlobalConfig) ([]byte, error) {
	out, err := yaml.Marshal(configRoot{PcapBench: *cfg})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrConfigInvalid, fmt.Sprintf(format, args...))
}
