// Package metrics exposes Prometheus instrumentation for the call service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionCounter exposes the number of live call sessions.
type SessionCounter interface {
	Count() int
}

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	CallsAnswered          prometheus.Counter
	Decisions              *prometheus.CounterVec
	ClassificationFailures prometheus.Counter
	ClassificationSeconds  prometheus.Histogram
}

// New registers all collectors on the given registerer. sessions feeds the
// active-sessions gauge at scrape time.
func New(reg prometheus.Registerer, sessions SessionCounter) *Metrics {
	m := &Metrics{
		CallsAnswered: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "switchboard_calls_answered_total",
			Help: "Number of inbound calls answered.",
		}),
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "switchboard_decisions_total",
			Help: "Dialog decisions by outcome.",
		}, []string{"outcome"}),
		ClassificationFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "switchboard_classification_failures_total",
			Help: "Classification requests that failed or timed out.",
		}),
		ClassificationSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "switchboard_classification_seconds",
			Help:    "Latency of intent classification requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "switchboard_active_sessions",
		Help: "Number of call sessions currently held in the store.",
	}, func() float64 {
		return float64(sessions.Count())
	})

	return m
}
