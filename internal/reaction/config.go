package reaction

import (
	"errors"
	"fmt"
	"time"
)

// Config is the process-wide game configuration. It is validated once by
// NewGame and never changed afterwards.
type Config struct {
	MinDelay       time.Duration // shortest wait before the stimulus
	MaxDelay       time.Duration // longest wait before the stimulus
	Timeout        time.Duration // reaction window after the stimulus
	MaxHistorySize int           // number of outcomes kept in History
}

// DefaultConfig returns the configuration the game ships with.
func DefaultConfig() Config {
	return Config{
		MinDelay:       2 * time.Second,
		MaxDelay:       7 * time.Second,
		Timeout:        5 * time.Second,
		MaxHistorySize: 10,
	}
}

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("reaction: invalid config")

// Validate reports the first configuration violation, if any.
func (c Config) Validate() error {
	switch {
	case c.MinDelay <= 0:
		return fmt.Errorf("%w: min delay %v must be positive", ErrInvalidConfig, c.MinDelay)
	case c.MaxDelay <= 0:
		return fmt.Errorf("%w: max delay %v must be positive", ErrInvalidConfig, c.MaxDelay)
	case c.MinDelay > c.MaxDelay:
		return fmt.Errorf("%w: min delay %v exceeds max delay %v", ErrInvalidConfig, c.MinDelay, c.MaxDelay)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout %v must be positive", ErrInvalidConfig, c.Timeout)
	case c.MaxHistorySize <= 0:
		return fmt.Errorf("%w: history size %d must be positive", ErrInvalidConfig, c.MaxHistorySize)
	}
	return nil
}
