package config

import "fmt"

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
)

// Presets lists the known difficulty presets, easiest first.
var Presets = []DifficultyPreset{DifficultyEasy, DifficultyNormal, DifficultyHard}

// ParseDifficulty validates a preset name. The empty string means no preset.
func ParseDifficulty(name string) (DifficultyPreset, error) {
	if name == "" {
		return "", nil
	}
	for _, p := range Presets {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("config: unknown difficulty %q (want easy, normal or hard)", name)
}

// ApplyPreset modifies the config based on a difficulty preset. Easy gives a
// shorter wait and a longer reaction window; hard stretches the wait and
// leaves one second to react. History size is never touched.
func ApplyPreset(cfg *Config, preset DifficultyPreset) {
	switch preset {
	case DifficultyEasy:
		cfg.MinDelayMS = 1000
		cfg.MaxDelayMS = 4000
		cfg.TimeoutMS = 8000
	case DifficultyNormal:
		cfg.MinDelayMS = 2000
		cfg.MaxDelayMS = 7000
		cfg.TimeoutMS = 5000
	case DifficultyHard:
		cfg.MinDelayMS = 2000
		cfg.MaxDelayMS = 9000
		cfg.TimeoutMS = 1000
	}
}
