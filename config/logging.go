package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// LoggingConfig defines the log level and output format.
type LoggingConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `json:"level"`
	// Format is "json" or "console". Empty follows APP_ENV.
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level and format names.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Format {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("logging.format: unknown format %s", c.Format)
	}
}
