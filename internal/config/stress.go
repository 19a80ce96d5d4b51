package config

import "fmt"

// StressConfig sizes the concurrent AddRef/Release workload.
type StressConfig struct {
	Objects     int    `yaml:"objects" json:"objects"`         // Shared objects under load
	Workers     int    `yaml:"workers" json:"workers"`         // Goroutines per object
	Iterations  int    `yaml:"iterations" json:"iterations"`   // References taken and dropped per worker
	Parallelism int    `yaml:"parallelism" json:"parallelism"` // Max workers running at once (0 = unbounded)
	Aggregated  bool   `yaml:"aggregated" json:"aggregated"`   // Load composites instead of plain objects
	Parts       int    `yaml:"parts" json:"parts"`             // Parts per composite
	Timeout     string `yaml:"timeout" json:"timeout"`
}

// Validate checks the stress settings.
func (s *StressConfig) Validate() error {
	if s.Objects < 1 {
		return fmt.Errorf("stress.objects must be >= 1")
	}
	if s.Workers < 1 {
		return fmt.Errorf("stress.workers must be >= 1")
	}
	if s.Iterations < 1 {
		return fmt.Errorf("stress.iterations must be >= 1")
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("stress.parallelism must be >= 0")
	}
	if s.Aggregated && s.Parts < 1 {
		return fmt.Errorf("stress.parts must be >= 1 when aggregated")
	}
	return nil
}
