// Package config provides YAML-based configuration loading and difficulty
// presets for the reaction timer.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/tui-reaction/internal/reaction"
)

// Config is the on-disk shape of the game configuration. Durations are
// whole milliseconds. The same keys are accepted in YAML and TOML files.
type Config struct {
	MinDelayMS     int `yaml:"min_delay_ms" toml:"min_delay_ms" env:"REACTION_MIN_DELAY_MS"`
	MaxDelayMS     int `yaml:"max_delay_ms" toml:"max_delay_ms" env:"REACTION_MAX_DELAY_MS"`
	TimeoutMS      int `yaml:"timeout_ms" toml:"timeout_ms" env:"REACTION_TIMEOUT_MS"`
	MaxHistorySize int `yaml:"max_history_size" toml:"max_history_size" env:"REACTION_MAX_HISTORY_SIZE"`
}

// Reaction converts the file config into the game's runtime config.
func (c Config) Reaction() reaction.Config {
	return reaction.Config{
		MinDelay:       time.Duration(c.MinDelayMS) * time.Millisecond,
		MaxDelay:       time.Duration(c.MaxDelayMS) * time.Millisecond,
		Timeout:        time.Duration(c.TimeoutMS) * time.Millisecond,
		MaxHistorySize: c.MaxHistorySize,
	}
}

// Validate reports whether the config describes a playable game.
func (c Config) Validate() error {
	if err := c.Reaction().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: failed to encode: %w", err)
	}
	return data, nil
}
