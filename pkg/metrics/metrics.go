// Copyright 2025 VRF Relay Worker Authors
//
// Package metrics exposes the relay worker's Prometheus counters and
// gauges: per-terminal-classification task counts and queue depth.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels the terminal classification a task attempt ended in.
type Outcome string

const (
	OutcomeResolved          Outcome = "resolved"
	OutcomeOracleRejected    Outcome = "oracle_rejected"
	OutcomeInsufficientPower Outcome = "insufficient_power"
	OutcomeRetryCapped       Outcome = "retry_capped"
	OutcomeReorgDropped      Outcome = "reorg_dropped"
)

// Metrics bundles the worker's registered Prometheus collectors.
type Metrics struct {
	TasksTotal     *prometheus.CounterVec
	RetriesTotal   prometheus.Counter
	QueueDepth     prometheus.Gauge
	RelayLatency   prometheus.Histogram
	TrimSignatures prometheus.Histogram
}

// New registers and returns a fresh Metrics set against registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vrf_worker_tasks_total",
			Help: "VRF relay tasks by terminal classification.",
		}, []string{"outcome"}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vrf_worker_retries_total",
			Help: "Transient-failure retries issued back onto the task queue.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vrf_worker_queue_depth",
			Help: "Current number of items buffered in the task queue.",
		}),
		RelayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vrf_worker_relay_latency_seconds",
			Help:    "End-to-end latency of attempts that relay a proof successfully, from request_vrf to the mined receipt.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		TrimSignatures: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vrf_worker_trim_signature_count",
			Help:    "Number of signatures retained by the proof trimmer.",
			Buckets: prometheus.LinearBuckets(1, 2, 16),
		}),
	}
	registerer.MustRegister(m.TasksTotal, m.RetriesTotal, m.QueueDepth, m.RelayLatency, m.TrimSignatures)
	return m
}

// Handler returns the Prometheus exposition HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
