package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reggw_upstream_attempts_total",
			Help: "Total number of upstream transport attempts",
		},
		[]string{"result"}, // ok, server_error, timeout, network
	)

	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reggw_upstream_outcomes_total",
			Help: "Total number of executed descriptors by outcome kind",
		},
		[]string{"kind"},
	)

	ReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reggw_offline_replays_total",
			Help: "Total number of offline queue entries replayed",
		},
		[]string{"queue", "success"}, // success: "true" or "false"
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reggw_submissions_total",
			Help: "Total number of form submissions by resulting status",
		},
		[]string{"status"},
	)

	// Gauges
	QueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reggw_offline_queue_length",
			Help: "Current number of requests waiting in each offline queue",
		},
		[]string{"queue"},
	)

	UpstreamOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reggw_upstream_online",
			Help: "1 when the upstream is reachable, 0 otherwise",
		},
	)

	// Buckets: 5ms to ~20s
	AttemptDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reggw_upstream_attempt_duration_seconds",
			Help:    "Duration of single upstream attempts in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 13),
		},
		[]string{"method"},
	)
)
