// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_manager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_manager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_manager_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Video lifecycle metrics
var (
	VideoUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_manager_uploads_total",
			Help: "Total number of video add attempts by source and result",
		},
		[]string{"source", "result"}, // source: "file", "location"
	)

	VideoUploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_manager_upload_bytes_total",
			Help: "Total bytes of uploaded video files",
		},
	)

	VideoEditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_manager_edits_total",
			Help: "Total number of video edits by result",
		},
		[]string{"result"},
	)

	VideoDeletesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_manager_deletes_total",
			Help: "Total number of deleted videos",
		},
	)
)

// Task metrics
var (
	TasksEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_manager_tasks_enqueued_total",
			Help: "Total number of post-process tasks published",
		},
		[]string{"status"},
	)

	TasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_manager_tasks_processed_total",
			Help: "Total number of post-process tasks handled by final status",
		},
		[]string{"status"},
	)

	TaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_manager_task_duration_seconds",
			Help:    "Post-process task duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Search metrics
var (
	SearchIndexOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_manager_search_index_operations_total",
			Help: "Total number of search backend operations",
		},
		[]string{"backend", "operation", "status"},
	)
)
