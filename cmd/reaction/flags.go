package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-reaction/internal/config"
)

// Flag names shared by the root and play commands.
const (
	flagNameMinDelay = "min-delay"
	flagNameMaxDelay = "max-delay"
	flagNameTimeout  = "timeout"
	flagNameHistory  = "history"
)

// addGameFlags registers the per-run overrides on cmd.
func addGameFlags(cmd *cobra.Command) {
	d := config.DefaultConfig().Reaction()
	cmd.Flags().Duration(flagNameMinDelay, d.MinDelay, "Shortest wait before the stimulus")
	cmd.Flags().Duration(flagNameMaxDelay, d.MaxDelay, "Longest wait before the stimulus")
	cmd.Flags().Duration(flagNameTimeout, d.Timeout, "How long the stimulus stays up")
	cmd.Flags().Int(flagNameHistory, d.MaxHistorySize, "Number of recent runs kept in the history")
}

// loadConfig resolves the effective configuration: file, then difficulty
// preset, then REACTION_* environment variables, then any flag the user
// actually set.
func loadConfig(cmd *cobra.Command) (config.Config, config.Source, error) {
	cfg, src, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, "", err
	}

	preset, err := config.ParseDifficulty(flagDifficulty)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyPreset(&cfg, preset)

	if err := config.ApplyEnv(&cfg); err != nil {
		return config.Config{}, "", err
	}

	if err := applyDurationFlag(cmd, flagNameMinDelay, &cfg.MinDelayMS); err != nil {
		return config.Config{}, "", err
	}
	if err := applyDurationFlag(cmd, flagNameMaxDelay, &cfg.MaxDelayMS); err != nil {
		return config.Config{}, "", err
	}
	if err := applyDurationFlag(cmd, flagNameTimeout, &cfg.TimeoutMS); err != nil {
		return config.Config{}, "", err
	}
	if err := applyIntFlag(cmd, flagNameHistory, &cfg.MaxHistorySize); err != nil {
		return config.Config{}, "", err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", err
	}
	return cfg, src, nil
}

func applyDurationFlag(cmd *cobra.Command, name string, targetMS *int) error {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*targetMS = int(v / time.Millisecond)
	return nil
}

func applyIntFlag(cmd *cobra.Command, name string, target *int) error {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*target = v
	return nil
}
