// Package metrics holds Prometheus metrics for the registration pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registration pipeline's Prometheus metrics.
type Metrics struct {
	RegistrationsRecorded prometheus.Counter
	RegistrationsQueued   prometheus.Counter
	RegistrationsFailed   prometheus.Counter
	QueueDepth            prometheus.Gauge
	FailedQueueDepth      prometheus.Gauge
	QueueEvictions        prometheus.Counter
	RetryAttempts         prometheus.Counter
	BackupWrites          prometheus.Counter
	ParseFailures         prometheus.Counter
	ValidationFailures    prometheus.Counter
	MembershipResults     *prometheus.CounterVec
}

// New creates and registers all registration metrics on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "promoreg_registrations_recorded_total",
			Help: "Registrations appended to the store on the first try",
		}),
		RegistrationsQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "promoreg_registrations_queued_total",
			Help: "Registrations placed on the retry queue after a store failure",
		}),
		RegistrationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "promoreg_registrations_failed_total",
			Help: "Registrations moved to the failed queue after exhausting retries",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "promoreg_retry_queue_depth",
			Help: "Current depth of the append retry queue",
		}),
		FailedQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "promoreg_failed_queue_depth",
			Help: "Current depth of the failed queue awaiting operator inspection",
		}),
		QueueEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "promoreg_queue_evictions_total",
			Help: "Records evicted from a full bounded queue",
		}),
		RetryAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "promoreg_retry_attempts_total",
			Help: "Store append retry attempts by the drain worker",
		}),
		BackupWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "promoreg_backup_writes_total",
			Help: "Records written to the local JSONL backup file",
		}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "promoreg_parse_failures_total",
			Help: "Submissions rejected as malformed before validation",
		}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "promoreg_validation_failures_total",
			Help: "Submissions rejected as incomplete",
		}),
		MembershipResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promoreg_membership_results_total",
			Help: "Membership check results by status",
		}, []string{"status"}),
	}
}
