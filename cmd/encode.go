package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/pcapbench/internal/capture"
	"firestige.xyz/pcapbench/internal/netsight"
)

var encodeOutput string

var encodeCmd = &cobra.Command{
	Use:   "encode <capture>",
	Short: "Write a capture's packets as NetSight hex text",
	Long: `Write every packet payload of a capture as one line of lowercase hex,
the input format of the NetSight compressor. The default output is the
side file path <capture>.ns; use "-" for stdout.

Examples:
  pcapbench encode trace.pcap
  pcapbench encode trace.pcap -o - | head`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := encodeOutput
		if out == "" {
			out = netsight.SidePath(args[0])
		}
		return runEncode(args[0], out, cmd.OutOrStdout())
	},
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeOutput, "output", "o", "", "output path (default <capture>.ns, - for stdout)")
}

func runEncode(path, output string, stdout io.Writer) error {
	f, err := capture.ReadFile(path)
	if err != nil {
		return err
	}
	pkts, err := f.Collect()
	if err != nil {
		return fmt.Errorf("capture %s: %w", path, err)
	}
	payloads := make([][]byte, len(pkts))
	for i, p := range pkts {
		payloads[i] = p.Data
	}

	if output == "-" {
		return netsight.EncodeHexText(stdout, payloads)
	}
	w, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := netsight.EncodeHexText(w, payloads); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d packets written to %s\n", path, len(pkts), output)
	return nil
}
