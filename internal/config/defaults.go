package config

import (
	_ "embed"
)

//go:embed defaults/reaction.yaml
var defaultReactionYAML []byte

// DefaultConfig returns the hard-coded configuration used when no file,
// including the embedded one, can be read.
func DefaultConfig() Config {
	return Config{
		MinDelayMS:     2000,
		MaxDelayMS:     7000,
		TimeoutMS:      5000,
		MaxHistorySize: 10,
	}
}
