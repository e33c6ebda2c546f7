package autoscale

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoscale_batches_total",
			Help: "Total number of rule batches run",
		},
		[]string{"kind"},
	)

	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autoscale_batch_duration_seconds",
			Help:    "Duration of rule batches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	rulesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoscale_rules_processed_total",
			Help: "Total number of rule runs by outcome",
		},
		[]string{"kind", "outcome"},
	)

	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoscale_actions_total",
			Help: "Total number of actions by type and status",
		},
		[]string{"action_type", "status"},
	)

	historyWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autoscale_history_write_failures_total",
			Help: "Total number of history records that could not be persisted",
		},
	)
)
