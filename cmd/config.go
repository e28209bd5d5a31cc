package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/pcapbench/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, the config file,
PCAPBENCH_* environment variables and command-line flags.

Examples:
  pcapbench config
  pcapbench config -c bench.yml --workers 4`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.Dump(appConfig)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
