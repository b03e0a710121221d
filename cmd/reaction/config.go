package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration that "reaction play" would use, after the config
file, the difficulty preset and any overrides have been applied.

Examples:
  reaction config
  reaction config --difficulty hard > ~/.reaction/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	addGameFlags(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, src, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", src)
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
