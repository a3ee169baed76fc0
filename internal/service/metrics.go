package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	CheckpointsCreated   prometheus.Counter
	UnsavedResetFailures prometheus.Counter
	Rollbacks            prometheus.Counter
	OutboundRequests     *prometheus.CounterVec
}

// NewMetrics registers the service counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckpointsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "suar",
			Name:      "checkpoints_created_total",
			Help:      "Number of checkpoints created.",
		}),
		UnsavedResetFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "suar",
			Name:      "checkpoint_unsaved_reset_failures_total",
			Help:      "Checkpoints created whose request could not be marked saved.",
		}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "suar",
			Name:      "rollbacks_total",
			Help:      "Number of successful rollbacks.",
		}),
		OutboundRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suar",
			Name:      "outbound_requests_total",
			Help:      "Proxied requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.CheckpointsCreated, m.UnsavedResetFailures, m.Rollbacks, m.OutboundRequests)
	return m
}
