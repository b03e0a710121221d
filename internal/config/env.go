package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ApplyEnv overrides cfg with any REACTION_* environment variables that are
// set. Unset variables leave the current values alone.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}
