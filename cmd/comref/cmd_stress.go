package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"comref/internal/config"
	"comref/internal/logging"
	"comref/internal/metrics"
	"comref/internal/stress"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var stressFlags struct {
	objects     int
	workers     int
	iterations  int
	parallelism int
	aggregated  bool
	parts       int
}

// stressCmd runs the concurrent reference workload
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Hammer shared objects with concurrent AddRef/Release",
	Long: `Starts workers that each take and drop references on shared objects,
then releases the last reference and checks every object was destroyed
exactly once. The report is printed as YAML.

Example:
  comref stress --objects 8 --workers 32 --iterations 10000
  comref stress --aggregated --parts 3`,
	Args: cobra.NoArgs,
	RunE: runStress,
}

// metricsCmd runs the workload and prints lifetime metrics
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Run the stress workload and print Prometheus metrics",
	Args:  cobra.NoArgs,
	RunE:  runMetrics,
}

func registerStressFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&stressFlags.objects, "objects", 0, "Shared objects (default: stress.objects)")
	cmd.Flags().IntVar(&stressFlags.workers, "workers", 0, "Workers per object (default: stress.workers)")
	cmd.Flags().IntVar(&stressFlags.iterations, "iterations", 0, "References per worker (default: stress.iterations)")
	cmd.Flags().IntVar(&stressFlags.parallelism, "parallelism", 0, "Max concurrent workers, 0 = unbounded")
	cmd.Flags().BoolVar(&stressFlags.aggregated, "aggregated", false, "Load composites instead of plain objects")
	cmd.Flags().IntVar(&stressFlags.parts, "parts", 0, "Parts per composite (default: stress.parts)")
}

// stressSettings merges explicitly set flags over the config file.
func stressSettings(cmd *cobra.Command) config.StressConfig {
	s := cfg.Stress
	flags := cmd.Flags()
	if flags.Changed("objects") {
		s.Objects = stressFlags.objects
	}
	if flags.Changed("workers") {
		s.Workers = stressFlags.workers
	}
	if flags.Changed("iterations") {
		s.Iterations = stressFlags.iterations
	}
	if flags.Changed("parallelism") {
		s.Parallelism = stressFlags.parallelism
	}
	if flags.Changed("aggregated") {
		s.Aggregated = stressFlags.aggregated
	}
	if flags.Changed("parts") {
		s.Parts = stressFlags.parts
	}
	return s
}

// runContext bounds a command by --timeout (or the config) and SIGINT/SIGTERM.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	d := timeout
	if d <= 0 {
		d = cfg.GetStressTimeout()
	}
	ctx, cancelTimeout := context.WithTimeout(base, d)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancelTimeout()
	}
}

func runWorkload(cmd *cobra.Command, reg *metrics.Registry) (*stress.Report, error) {
	settings := stressSettings(cmd)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := runContext(cmd)
	defer cancel()

	opts := stress.FromConfig(settings)
	opts.Logger = loggers.Get(logging.CategoryStress)
	if reg != nil {
		opts.Tracker = reg.Tracker
	}

	logger.Info("Starting stress run",
		zap.Int("objects", settings.Objects),
		zap.Int("workers", settings.Workers),
		zap.Int("iterations", settings.Iterations),
		zap.Bool("aggregated", settings.Aggregated))

	return stress.Run(ctx, opts)
}

func runStress(cmd *cobra.Command, args []string) error {
	report, err := runWorkload(cmd, nil)
	if report != nil {
		data, merr := yaml.Marshal(report)
		if merr != nil {
			return fmt.Errorf("failed to marshal report: %w", merr)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
	}
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("stress run failed: %d leaked, %d destructions for %d objects",
			report.Leaked, report.Destructions, report.Objects)
	}
	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	reg := metrics.NewRegistry()
	if _, err := runWorkload(cmd, reg); err != nil {
		return err
	}
	loggers.Get(logging.CategoryMetrics).Debug("writing metrics")
	return reg.WriteText(cmd.OutOrStdout())
}
