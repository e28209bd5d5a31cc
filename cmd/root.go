// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/pcapbench/internal/config"
	"firestige.xyz/pcapbench/internal/log"
	"firestige.xyz/pcapbench/internal/metrics"
)

var (
	// Global flags
	configFile string

	// Loaded by PersistentPreRunE for the running command
	appConfig     *config.GlobalConfig
	metricsServer *metrics.Server
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pcapbench",
	Short: "pcapbench - compression benchmark for captured network traffic",
	Long: `pcapbench measures how well captured network traffic compresses.

Each capture file is compressed three ways:
  - gzip over the raw capture bytes
  - zstd over the raw capture bytes
  - NetSight: packets are written as hex text (one per line) and handed to
    the external ns_compress tool, which reports its gzip and zstd variants

Results are printed per file, or collected into a CSV report for a directory.`,
	Version:            "0.1.0",
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path (YAML, root key 'pcapbench')")
	pf.String("log-level", "info", "log level: debug/info/warn/error")
	pf.String("log-format", "text", "log format: json/text")
	pf.Int("gzip-level", 6, "gzip compression level (-2..9)")
	pf.Int("zstd-level", 22, "zstd compression level (1..22)")
	pf.IntP("workers", "w", 0, "parallel workers in directory mode (0 = number of CPUs)")
	pf.String("tool", "./ns_compress", "path of the NetSight compressor binary")
	pf.String("timeout", "5m", "timeout for one NetSight invocation")
	pf.Bool("metrics", false, "serve Prometheus metrics while running")

	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(dirCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads configuration, then initializes logging and metrics.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFlags(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log); err != nil {
		return err
	}
	appConfig = cfg

	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := metricsServer.Start(cmd.Context()); err != nil {
			return err
		}
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if metricsServer == nil {
		return nil
	}
	err := metricsServer.Stop(context.Background())
	metricsServer = nil
	return err
}
