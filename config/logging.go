package config

import (
	"fmt"
	"strings"
)

// LoggingConfig defines the log level and an optional log file.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level name and rotation sizes.
func (c LoggingConfig) Validate() error {
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 {
		return fmt.Errorf("rotation sizes must not be negative")
	}
	switch strings.ToLower(c.Level) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
}
