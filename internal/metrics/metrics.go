// Package metrics records session activity as Prometheus metrics.
package metrics

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/Faultbox/scanlab/internal/session"
)

// Transition results.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Load results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the session collectors.
type Metrics struct {
	Loads       *prometheus.CounterVec
	ParseTime   *prometheus.HistogramVec
	Vertices    *prometheus.GaugeVec
	Transitions *prometheus.CounterVec
}

// New creates the collectors under namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mesh_loads_total",
				Help:      "Total number of mesh loads by role and result",
			},
			[]string{"role", "result"},
		),
		ParseTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mesh_parse_duration_seconds",
				Help:      "Duration of mesh parsing",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"format"},
		),
		Vertices: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mesh_vertices",
				Help:      "Vertex count of the mesh currently loaded per role",
			},
			[]string{"role"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_transitions_total",
				Help:      "Total number of toggles by machine, target state and result",
			},
			[]string{"machine", "to", "result"},
		),
	}
}

// Register registers every collector with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Loads, m.ParseTime, m.Vertices, m.Transitions} {
		if err := r.Register(c); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
	}
	return nil
}

// Hooks returns session hooks that record into m.
func (m *Metrics) Hooks() session.Hooks {
	return session.Hooks{
		OnLoad: func(_ context.Context, e *session.LoadEvent) {
			m.Loads.WithLabelValues(string(e.Role), ResultOK).Inc()
			m.ParseTime.WithLabelValues(e.Format.String()).Observe(e.Parse.Seconds())
			m.Vertices.WithLabelValues(string(e.Role)).Set(float64(e.Vertices))
		},
		OnLoadFailed: func(_ context.Context, e *session.LoadEvent) {
			m.Loads.WithLabelValues(string(e.Role), ResultError).Inc()
		},
		OnTransition: func(_ context.Context, e *session.TransitionEvent) {
			result := ResultApplied
			switch {
			case e.Rejected:
				result = ResultRejected
			case e.Err != nil:
				result = ResultFailed
			}
			m.Transitions.WithLabelValues(e.Machine, e.To, result).Inc()
		},
		OnRemove: func(_ context.Context, e *session.RemoveEvent) {
			m.Vertices.DeleteLabelValues(string(e.Role))
		},
	}
}

// WriteText writes every family gathered by g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
