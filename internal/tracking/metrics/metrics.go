// Package metrics holds Prometheus metrics for click tracking.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the click tracker's Prometheus metrics.
type Metrics struct {
	SelectionsAssigned   *prometheus.CounterVec
	SelectionsReassigned *prometheus.CounterVec
	SelectionsDropped    *prometheus.CounterVec
	Redirects            *prometheus.CounterVec
	SelectionLatency     prometheus.Histogram
}

// New creates and registers all tracking metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SelectionsAssigned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promoreg_selections_assigned_total",
			Help: "First destination selections that assigned a pending record",
		}, []string{"destination"}),
		SelectionsReassigned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promoreg_selections_reassigned_total",
			Help: "Selections by already-assigned users, creating a new record",
		}, []string{"destination"}),
		SelectionsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promoreg_selections_dropped_total",
			Help: "Selection events dropped without a store mutation, by reason",
		}, []string{"reason"}),
		Redirects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promoreg_redirects_total",
			Help: "Redirect responses by destination",
		}, []string{"destination"}),
		SelectionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "promoreg_selection_latency_seconds",
			Help:    "Latency of selection event handling",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
