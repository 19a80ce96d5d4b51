package config

import "fmt"

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// LoggingConfig configures logging. An empty level means info.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`
	Format     string          `yaml:"format" json:"format,omitempty"` // text or json
	File       string          `yaml:"file" json:"file,omitempty"`     // stderr when empty
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"` // keyed by boot, refcount, aggregate, stress, metrics
}

// IsCategoryEnabled reports whether the named logger (refcount, aggregate,
// stress, ...) writes anything. Category loggers are silent unless
// debug_mode is set; a category missing from the map is on.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	enabled, exists := c.Categories[category]
	return enabled || !exists
}

// Validate checks level and format.
func (c *LoggingConfig) Validate() error {
	valid := c.Level == ""
	for _, l := range ValidLogLevels {
		if c.Level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Level, ValidLogLevels)
	}
	switch c.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Format)
	}
}
