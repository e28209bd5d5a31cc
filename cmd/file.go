package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pcapbench/internal/bench"
	"firestige.xyz/pcapbench/internal/core"
	"firestige.xyz/pcapbench/internal/sink"
	"firestige.xyz/pcapbench/internal/sink/console"
)

var fileCmd = &cobra.Command{
	Use:   "file <capture>",
	Short: "Benchmark a single capture file",
	Long: `Benchmark a single capture file and print every method's compression
rate and time.

Examples:
  pcapbench file trace.pcap
  pcapbench file trace.pcap --tool /opt/netsight/ns_compress`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(cmd.Context(), bench.OptionsFromConfig(appConfig), args[0], cmd.OutOrStdout())
	},
}

func runFile(ctx context.Context, opts bench.Options, path string, out io.Writer) error {
	r, err := bench.NewRunner(opts)
	if err != nil {
		return err
	}
	res, err := r.RunFile(ctx, path)
	if err != nil {
		return err
	}
	return sink.SendAll(console.NewSink(out), []core.BenchmarkResult{res})
}
