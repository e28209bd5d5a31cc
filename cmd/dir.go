package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pcapbench/internal/bench"
	"firestige.xyz/pcapbench/internal/sink"
	"firestige.xyz/pcapbench/internal/sink/csvfile"
)

var dirCmd = &cobra.Command{
	Use:   "dir <directory>",
	Short: "Benchmark every capture file in a directory into a CSV report",
	Long: `Benchmark every capture file in a directory in parallel and write one
CSV report with a row per file, in file name order. Files that cannot be
benchmarked get a row with "error" in every metric column.

Examples:
  pcapbench dir ./captures
  pcapbench dir ./captures -o results.csv --workers 8
  pcapbench dir ./captures --extension .cap`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDir(cmd.Context(), bench.OptionsFromConfig(appConfig), args[0], appConfig.Bench.Report, cmd.OutOrStdout())
	},
}

func init() {
	dirCmd.Flags().StringP("output", "o", "report.csv", "CSV report path")
	dirCmd.Flags().String("extension", ".pcap", "capture file name suffix")
}

func runDir(ctx context.Context, opts bench.Options, dir, reportPath string, out io.Writer) error {
	r, err := bench.NewRunner(opts)
	if err != nil {
		return err
	}
	results, runErr := r.RunDir(ctx, dir)
	if results == nil && runErr != nil {
		return runErr
	}

	s, err := csvfile.Create(reportPath)
	if err != nil {
		return err
	}
	if err := sink.SendAll(s, results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(out, "%d file(s) benchmarked, %d failed, report written to %s\n",
		len(results), bench.Failures(results), reportPath)
	return runErr
}
