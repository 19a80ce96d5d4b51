// Package stress drives concurrent AddRef/Release traffic against shared
// objects and checks that each one is destroyed exactly once.
package stress

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"comref/internal/aggregate"
	"comref/internal/config"
	"comref/internal/unknown"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Options sizes a run.
type Options struct {
	Objects     int
	Workers     int
	Iterations  int
	Parallelism int
	Aggregated  bool
	Parts       int

	Logger *zap.Logger
	// Tracker, if set, supplies a lifetime tracker per object kind.
	Tracker func(kind string) unknown.Tracker
}

// FromConfig copies the stress settings.
func FromConfig(c config.StressConfig) Options {
	return Options{
		Objects:     c.Objects,
		Workers:     c.Workers,
		Iterations:  c.Iterations,
		Parallelism: c.Parallelism,
		Aggregated:  c.Aggregated,
		Parts:       c.Parts,
	}
}

// Report summarises a run.
type Report struct {
	Objects      int           `yaml:"objects" json:"objects"`
	Workers      int           `yaml:"workers" json:"workers"`
	Aggregated   bool          `yaml:"aggregated" json:"aggregated"`
	Increments   int64         `yaml:"increments" json:"increments"`
	Decrements   int64         `yaml:"decrements" json:"decrements"`
	Queries      int64         `yaml:"queries" json:"queries"`
	Destructions int64         `yaml:"destructions" json:"destructions"`
	Leaked       int           `yaml:"leaked" json:"leaked"`
	Elapsed      time.Duration `yaml:"elapsed" json:"elapsed"`
}

// OK reports whether every object was destroyed exactly once.
func (r *Report) OK() bool {
	return r.Leaked == 0 && r.Destructions == int64(r.Objects) && r.Increments == r.Decrements
}

// target is one object under load: its public face, the capabilities a
// worker may query, and the handle used to inspect its state.
type target struct {
	public unknown.Unknown
	iids   []unknown.IID
	base   *unknown.Base
}

type counters struct {
	increments   atomic.Int64
	decrements   atomic.Int64
	queries      atomic.Int64
	destructions atomic.Int64
}

// countingTracker counts destructions of top-level objects and forwards
// to the configured tracker.
type countingTracker struct {
	next unknown.Tracker
	c    *counters
}

func (t countingTracker) ObjectCreated() {
	if t.next != nil {
		t.next.ObjectCreated()
	}
}

func (t countingTracker) ObjectDestroyed() {
	t.c.destructions.Add(1)
	if t.next != nil {
		t.next.ObjectDestroyed()
	}
}

// Run executes the workload. Every reference a worker takes is dropped
// again, even when ctx is cancelled, so the objects are always destroyed.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Objects < 1 || opts.Workers < 1 || opts.Iterations < 1 {
		return nil, fmt.Errorf("objects, workers and iterations must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	c := &counters{}
	// The run holds one reference per object until all workers finish.
	targets, err := buildTargets(opts, c, logger)
	if err != nil {
		return nil, err
	}

	limit := int64(opts.Parallelism)
	if limit <= 0 {
		limit = int64(opts.Objects * opts.Workers)
	}
	sem := semaphore.NewWeighted(limit)

	g, gctx := errgroup.WithContext(ctx)
	for _, tg := range targets {
		tg := tg // per-iteration copy (Go <1.22 loop semantics)
		for w := 0; w < opts.Workers; w++ {
			w := w
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
				return work(gctx, tg, w, opts.Iterations, c)
			})
		}
	}
	runErr := g.Wait()

	report := &Report{
		Objects:    opts.Objects,
		Workers:    opts.Workers,
		Aggregated: opts.Aggregated,
	}
	for _, tg := range targets {
		if tg.public.Release() == 0 {
			logger.Debug("object released", zap.Int32("refs", tg.base.RefCount()))
		}
		c.decrements.Add(1)
		if !tg.base.Destroyed() {
			report.Leaked++
		}
	}

	report.Increments = c.increments.Load()
	report.Decrements = c.decrements.Load()
	report.Queries = c.queries.Load()
	report.Destructions = c.destructions.Load()
	report.Elapsed = time.Since(start)

	logger.Info("stress run complete",
		zap.Int("objects", report.Objects),
		zap.Int("workers", report.Workers),
		zap.Int64("increments", report.Increments),
		zap.Int64("destructions", report.Destructions),
		zap.Int("leaked", report.Leaked),
		zap.Duration("elapsed", report.Elapsed))

	if runErr != nil {
		return report, fmt.Errorf("stress run interrupted: %w", runErr)
	}
	return report, nil
}

// partFactory builds the inners of aggregated targets.
var partFactory = aggregate.PartFactory

// buildTargets creates the objects and takes the run's reference on each.
// If any object cannot be built, the ones already built are released.
func buildTargets(opts Options, c *counters, logger *zap.Logger) (_ []target, err error) {
	tracker := func(kind string) unknown.Tracker {
		if opts.Tracker == nil {
			return nil
		}
		return opts.Tracker(kind)
	}

	targets := make([]target, 0, opts.Objects)
	defer func() {
		if err == nil {
			return
		}
		for _, tg := range targets {
			tg.public.Release()
		}
		logger.Warn("stress targets discarded", zap.Int("built", len(targets)), zap.Error(err))
	}()

	hold := func(tg target) error {
		var out any
		if err := tg.public.QueryInterface(unknown.IIDUnknown, &out); err != nil {
			return fmt.Errorf("failed to take initial reference: %w", err)
		}
		c.increments.Add(1)
		targets = append(targets, tg)
		return nil
	}

	for i := 0; i < opts.Objects; i++ {
		if !opts.Aggregated {
			b := unknown.New(nil,
				unknown.WithTracker(countingTracker{next: tracker("plain"), c: c}),
				unknown.WithLogger(logger))
			if err := hold(target{public: b, base: b}); err != nil {
				return nil, err
			}
			continue
		}

		comp := aggregate.New(
			unknown.WithTracker(countingTracker{next: tracker("composite"), c: c}),
			unknown.WithLogger(logger))
		if err := hold(target{public: comp, base: comp.Base}); err != nil {
			return nil, err
		}
		tg := &targets[len(targets)-1]
		for p := 0; p < opts.Parts; p++ {
			iid := uuid.New()
			var partOpts []unknown.Option
			if t := tracker("part"); t != nil {
				partOpts = append(partOpts, unknown.WithTracker(t))
			}
			if _, err := comp.Aggregate(partFactory(fmt.Sprintf("part-%d", p), iid, partOpts...)); err != nil {
				return nil, fmt.Errorf("failed to build composite %d: %w", i, err)
			}
			tg.iids = append(tg.iids, iid)
		}
	}
	return targets, nil
}

// work takes n references, then drops them all. Aggregated targets take
// every other reference through a capability query.
func work(ctx context.Context, tg target, worker, n int, c *counters) error {
	held := make([]unknown.Unknown, 0, n)
	defer func() {
		for _, h := range held {
			h.Release()
			c.decrements.Add(1)
		}
	}()

	for i := 0; i < n; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if len(tg.iids) > 0 && i%2 == 1 {
			iid := tg.iids[(worker+i)%len(tg.iids)]
			var out any
			if err := tg.public.QueryInterface(iid, &out); err != nil {
				return fmt.Errorf("query %s: %w", iid, err)
			}
			c.queries.Add(1)
			c.increments.Add(1)
			held = append(held, out.(unknown.Unknown))
			continue
		}

		tg.public.AddRef()
		c.increments.Add(1)
		held = append(held, tg.public)
	}
	return nil
}
