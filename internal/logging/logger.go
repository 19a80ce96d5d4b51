// Package logging provides config-driven categorized logging for comref.
// A root zap logger follows logging.level and logging.format; category
// loggers are only live when debug_mode is on and the category is enabled.
package logging

import (
	"fmt"
	"sync"

	"comref/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config
	CategoryRefcount  Category = "refcount"  // Object lifetimes
	CategoryAggregate Category = "aggregate" // Composite/inner wiring
	CategoryStress    Category = "stress"    // Concurrent workloads
	CategoryMetrics   Category = "metrics"   // Metric export
)

// Loggers hands out the root logger and per-category children.
type Loggers struct {
	root *zap.Logger
	cfg  config.LoggingConfig

	mu    sync.RWMutex
	named map[Category]*zap.Logger
}

// New builds the root logger. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool) (*Loggers, error) {
	zcfg := zap.NewProductionConfig()

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil && cfg.Level != "" {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if cfg.Level == "" {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	if cfg.Format != "json" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if cfg.File != "" {
		zcfg.OutputPaths = []string{cfg.File}
	}

	root, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return Wrap(root, cfg), nil
}

// Wrap uses an existing root logger, as tests do with zaptest.
func Wrap(root *zap.Logger, cfg config.LoggingConfig) *Loggers {
	return &Loggers{
		root:  root,
		cfg:   cfg,
		named: make(map[Category]*zap.Logger),
	}
}

// Root returns the process logger.
func (l *Loggers) Root() *zap.Logger {
	return l.root
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func (l *Loggers) Get(category Category) *zap.Logger {
	if !l.cfg.IsCategoryEnabled(string(category)) {
		return zap.NewNop()
	}

	l.mu.RLock()
	if lg, ok := l.named[category]; ok {
		l.mu.RUnlock()
		return lg
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if lg, ok := l.named[category]; ok {
		return lg
	}
	lg := l.root.Named(string(category))
	l.named[category] = lg
	return lg
}

// Sync flushes the root logger.
func (l *Loggers) Sync() error {
	return l.root.Sync()
}
