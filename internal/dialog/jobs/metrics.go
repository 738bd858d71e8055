package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobItemsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "behandlerdialog",
			Name:      "job_items_processed_total",
			Help:      "Total items processed by the background jobs.",
		},
		[]string{"job", "status"}, // status: "updated", "failed"
	)

	jobRunDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "behandlerdialog",
			Name:      "job_run_duration_seconds",
			Help:      "Duration of one background job run.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)
