package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all comref configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Concurrent reference workload
	Stress StressConfig `yaml:"stress"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "comref",
		Version: "0.1.0",

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		Stress: StressConfig{
			Objects:     4,
			Workers:     16,
			Iterations:  1000,
			Parallelism: 8,
			Aggregated:  false,
			Parts:       2,
			Timeout:     "30s",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Malformed numbers are ignored and Validate reports the file value.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("COMREF_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if debug := os.Getenv("COMREF_DEBUG"); debug != "" {
		if v, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = v
		}
	}
	if workers := os.Getenv("COMREF_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			c.Stress.Workers = n
		}
	}
	if iterations := os.Getenv("COMREF_ITERATIONS"); iterations != "" {
		if n, err := strconv.Atoi(iterations); err == nil {
			c.Stress.Iterations = n
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Stress.Validate()
}

// GetStressTimeout returns the stress run timeout, or 30s if unset or invalid.
func (c *Config) GetStressTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Stress.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}
