// Package instrument holds the Prometheus collectors for running SART sessions.
package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionsCreated counts sessions registered with the service.
var SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "sart",
	Name:      "sessions_created_total",
	Help:      "Total sessions created.",
})

// SessionsCompleted counts sessions that reached the results phase.
var SessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "sart",
	Name:      "sessions_completed_total",
	Help:      "Total sessions that finished every round.",
})

// SessionsReaped counts sessions evicted after going idle.
var SessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "sart",
	Name:      "sessions_reaped_total",
	Help:      "Total idle sessions evicted.",
})

// SessionsActive tracks sessions currently held in memory.
var SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "sart",
	Name:      "sessions_active",
	Help:      "Number of sessions held in memory.",
})

// TrialsScored counts scored trials by phase and outcome.
var TrialsScored = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sart",
	Name:      "trials_scored_total",
	Help:      "Total scored trials.",
}, []string{"phase", "outcome"})

// ResponseLatency tracks accepted response latencies in seconds.
var ResponseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "sart",
	Name:      "response_latency_seconds",
	Help:      "Latency of responses made inside the response window.",
	Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1.0, 1.15},
})

// PersistFailures counts results that could not be saved.
var PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "sart",
	Name:      "persist_failures_total",
	Help:      "Total completed sessions whose result failed to save.",
})

// StreamClients tracks open websocket subscribers.
var StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "sart",
	Name:      "stream_clients",
	Help:      "Number of open snapshot stream connections.",
})
