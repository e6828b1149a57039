package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "staffdir_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	StaffOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffdir_staff_operations_total",
			Help: "Total staff create/update/deactivate operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffdir_import_rows_total",
			Help: "Bulk-import rows by result",
		},
		[]string{"result"},
	)

	SyncTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffdir_sync_tasks_total",
			Help: "Identity-provider sync tasks by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	SyncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "staffdir_sync_queue_depth",
			Help: "Tasks waiting on the identity-sync queue",
		},
	)
)
