package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"

	"firestige.xyz/pcapbench/internal/capture"
	"firestige.xyz/pcapbench/internal/netsight"
)

var (
	decodePcap     string
	decodeLinkType int
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file.ns>",
	Short: "Validate NetSight hex text and optionally rebuild a capture",
	Long: `Parse a hex text file, one packet per line, and report how many packets
and payload bytes it holds. With --pcap the packets are written back into a
capture file; timestamps are synthetic.

Examples:
  pcapbench decode trace.pcap.ns
  pcapbench decode trace.pcap.ns --pcap rebuilt.pcap --linktype 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecode(args[0], decodePcap, layers.LinkType(decodeLinkType), cmd.OutOrStdout())
	},
}

func init() {
	decodeCmd.Flags().StringVar(&decodePcap, "pcap", "", "write the decoded packets to this capture file")
	decodeCmd.Flags().IntVar(&decodeLinkType, "linktype", int(layers.LinkTypeEthernet), "link type of the rebuilt capture")
}

func runDecode(path, pcapOut string, linkType layers.LinkType, out io.Writer) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	payloads, err := netsight.DecodeHexText(in)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	total := 0
	for _, p := range payloads {
		total += len(p)
	}
	fmt.Fprintf(out, "%s: %d packets, %d bytes\n", path, len(payloads), total)

	if pcapOut == "" {
		return nil
	}
	w, err := os.Create(pcapOut)
	if err != nil {
		return err
	}
	if err := capture.Write(w, linkType, payloads); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
