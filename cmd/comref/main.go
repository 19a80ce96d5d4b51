package main

import (
	"fmt"
	"os"
	"time"

	"comref/internal/config"
	"comref/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg     *config.Config
	loggers *logging.Loggers
	logger  *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "comref",
	Short: "comref - reference-counted aggregation objects",
	Long: `comref exercises thread-safe reference-counted objects that can be
aggregated by an outer object.

Objects either own their identity or delegate every identity and lifetime
query to their outer, and destroy themselves on the last release.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		loggers, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		logger = loggers.Root()
		loggers.Get(logging.CategoryBoot).Debug("config loaded",
			zap.String("path", configPath),
			zap.String("level", cfg.Logging.Level))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "comref.yaml", "Path to config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Operation timeout (default: stress.timeout from config)")

	registerStressFlags(stressCmd)
	registerStressFlags(metricsCmd)

	// Add commands to root
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(metricsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
