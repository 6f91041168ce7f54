package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RequestBuckets mirror the request duration buckets of the public compiler API.
var RequestBuckets = []float64{0.5, 0.6, 0.7, 1, 10, 20, 30, 60}

var (
	CompilationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ligo_compilations_total",
			Help: "Total number of compiler invocations",
		},
		[]string{"operation", "status"}, // status: success, compile_error, timeout, spawn_error, io_error, error
	)

	CompilationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ligo_compilation_duration_ms",
			Help:    "Compiler invocation duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"operation"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ligo_queue_depth",
			Help: "Current number of jobs in the queue",
		},
	)

	QueueRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ligo_queue_rejections_total",
			Help: "Total number of jobs rejected because the queue was full",
		},
	)

	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ligo_active_workers",
			Help: "Number of workers currently processing jobs",
		},
	)

	OutputTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ligo_output_truncations_total",
			Help: "Total number of invocations whose output exceeded the capture limit",
		},
	)

	WorkspaceCleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ligo_workspace_cleanup_failures_total",
			Help: "Total number of scratch files that could not be removed",
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ligo_rate_limit_hits_total",
			Help: "Total number of requests rejected by rate limiter",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ligo_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ligo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: RequestBuckets,
		},
		[]string{"method", "path"},
	)
)
