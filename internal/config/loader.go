package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Source names where a loaded config came from.
type Source string

const (
	SourceCustom   Source = "custom"
	SourceUser     Source = "user"
	SourceLocal    Source = "local"
	SourceEmbedded Source = "embedded"
	SourceBuiltin  Source = "builtin"
)

// LocalPath is the project-relative config location.
const LocalPath = "configs/reaction.yaml"

// Load loads the reaction timer configuration.
// Search order: customPath -> ~/.reaction/config.yaml -> ./configs/reaction.yaml -> embedded default
//
// Keys missing from a file keep their default values. A custom path that
// cannot be read or parsed is an error; the other locations are skipped.
// A custom path ending in .toml is decoded as TOML.
func Load(customPath string) (Config, Source, error) {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Config{}, "", fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		parseFn := parse
		if strings.EqualFold(filepath.Ext(customPath), ".toml") {
			parseFn = parseTOML
		}
		cfg, err := parseFn(data)
		if err != nil {
			return Config{}, "", fmt.Errorf("config: failed to parse %s: %w", customPath, err)
		}
		return cfg, SourceCustom, nil
	}

	// Try user config directory
	if userCfgPath := userConfigPath(); userCfgPath != "" {
		if cfg, ok := loadFile(userCfgPath); ok {
			return cfg, SourceUser, nil
		}
	}

	// Try local configs directory
	if cfg, ok := loadFile(LocalPath); ok {
		return cfg, SourceLocal, nil
	}

	// Use embedded default YAML
	cfg, err := parse(defaultReactionYAML)
	if err != nil {
		return DefaultConfig(), SourceBuiltin, nil // Fallback to hardcoded if embed fails
	}
	return cfg, SourceEmbedded, nil
}

func loadFile(path string) (Config, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, false
	}
	cfg, err := parse(data)
	if err != nil {
		return Config{}, false
	}
	return cfg, true
}

func parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseTOML(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// userConfigPath returns the path to the user config file, or empty if home is unavailable.
func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".reaction", "config.yaml")
}
