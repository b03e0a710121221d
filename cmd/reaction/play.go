package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-reaction/internal/platform/tui"
	"github.com/vovakirdan/tui-reaction/internal/reaction"
	"github.com/vovakirdan/tui-reaction/internal/storage"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the reaction timer",
	Long: `Start the reaction timer.

Controls:
  Enter/R      - Start a new run (cancels the current one)
  Space/Click  - React
  ?            - Toggle help
  Q/Esc        - Quit

Difficulty options:
  easy   - 1-4s wait, 8s to react
  normal - 2-7s wait, 5s to react
  hard   - 2-9s wait, 1s to react

Flags such as --timeout override both the config file and the preset.

Examples:
  reaction play
  reaction play --difficulty hard
  reaction play --min-delay 500ms --max-delay 3s
  reaction play --config ./my-reaction.yaml`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	addGameFlags(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("reaction: stdout is not a terminal")
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	// Open the session journal
	store, err := storage.Open()
	if err != nil {
		logger.Warn("could not open session journal", "error", err)
		// Continue without journal - game still works
		store = nil
	}

	opts := []reaction.Option{
		reaction.WithSeed(flagSeed),
		reaction.WithLogger(logger),
	}
	if store != nil {
		opts = append(opts, reaction.WithRecorder(store))
	}

	port := tui.NewPort()
	game, err := reaction.NewGame(cfg.Reaction(), port, opts...)
	if err != nil {
		return err
	}

	logger.Info("session started", "min_delay", cfg.MinDelayMS, "max_delay", cfg.MaxDelayMS, "timeout", cfg.TimeoutMS, "seed", flagSeed)
	runErr := tui.Run(game, port)
	game.Close()

	if store != nil {
		printSummary(cmd.Context(), cmd.OutOrStdout(), store)
		store.Close()
	}

	if runErr != nil {
		return fmt.Errorf("reaction: %w", runErr)
	}
	return nil
}

// printSummary writes the session totals once the TUI has released the terminal.
func printSummary(ctx context.Context, w io.Writer, store *storage.Store) {
	if ctx == nil {
		ctx = context.Background()
	}
	sum, err := store.Summary(ctx)
	if err != nil || sum.Total == 0 {
		return
	}

	fmt.Fprintf(w, "Runs: %d  ok: %d  too soon: %d  too slow: %d\n",
		sum.Total, sum.Successes, sum.TooSoon, sum.TimedOut)
	if sum.HasMean {
		fmt.Fprintf(w, "Mean reaction time: %dms\n", sum.MeanSuccess.Round(time.Millisecond).Milliseconds())
	}
}
