// Package metrics exports object lifetime counters in Prometheus format.
package metrics

import (
	"fmt"
	"io"

	"comref/internal/unknown"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	namespace = "comref"
	subsystem = "objects"
)

// Registry holds the lifetime metrics for one process or test.
type Registry struct {
	reg       *prometheus.Registry
	created   *prometheus.CounterVec
	destroyed *prometheus.CounterVec
	live      *prometheus.GaugeVec
}

// NewRegistry creates a registry with the lifetime metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "created_total",
				Help:      "Total number of reference-counted objects created.",
			},
			[]string{"kind"},
		),
		destroyed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "destroyed_total",
				Help:      "Total number of reference-counted objects destroyed.",
			},
			[]string{"kind"},
		),
		live: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "live",
				Help:      "Objects created but not yet destroyed.",
			},
			[]string{"kind"},
		),
	}
	r.reg.MustRegister(r.created, r.destroyed, r.live)
	return r
}

// Tracker returns an unknown.Tracker recording under the given kind label.
func (r *Registry) Tracker(kind string) unknown.Tracker {
	return &tracker{
		created:   r.created.WithLabelValues(kind),
		destroyed: r.destroyed.WithLabelValues(kind),
		live:      r.live.WithLabelValues(kind),
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteText writes all metrics in the Prometheus text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

type tracker struct {
	created   prometheus.Counter
	destroyed prometheus.Counter
	live      prometheus.Gauge
}

func (t *tracker) ObjectCreated() {
	t.created.Inc()
	t.live.Inc()
}

func (t *tracker) ObjectDestroyed() {
	t.destroyed.Inc()
	t.live.Dec()
}
