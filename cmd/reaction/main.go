// reaction is a terminal reaction timer: wait for the screen to turn green,
// then press space as fast as you can.
//
// Usage:
//
//	reaction                 - Play (same as "reaction play")
//	reaction play            - Play with optional overrides
//	reaction config          - Print the effective configuration as YAML
//
// Global flags:
//
//	--config <path>       - Config file (default search: ~/.reaction/config.yaml, ./configs/reaction.yaml)
//	--difficulty <name>   - Preset: easy, normal, hard
//	--seed <value>        - Set RNG seed for reproducible delays
//	--log <path>          - Write a debug log to this file
//	--debug               - Log at debug level
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig     string
	flagDifficulty string
	flagSeed       int64
	flagLogPath    string
	flagDebug      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reaction",
	Short: "Reaction timer - test your reflexes in the terminal",
	Long: `Reaction timer measures how fast you respond to a visual stimulus.

Press enter to start a run. The screen turns red; after a random delay it
turns green. Press space (or click) as soon as it does. Reacting before the
green screen is "too soon", waiting past the timeout is "too slow".

Available commands:
  play     - Play (default)
  config   - Print the effective configuration

Examples:
  reaction
  reaction play --difficulty hard
  reaction play --timeout 2s --history 20
  reaction config --difficulty easy`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPlay,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagLogPath, "log", "", "Write log output to this file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log at debug level")

	addGameFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(configCmd)
}
