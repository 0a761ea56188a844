package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// FetchesTotal tracks the total number of dataset fetches
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enerframe_fetches_total",
			Help: "Total number of dataset fetches",
		},
		[]string{"dataset", "status"}, // status: cached, produced, error
	)

	// FetchDuration measures dataset fetch duration in seconds
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enerframe_fetch_duration_seconds",
			Help:    "Dataset fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"dataset", "status"},
	)

	// CacheRequests tracks persistence-layer cache outcomes
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enerframe_cache_requests_total",
			Help: "Total number of cache lookups and writes by result",
		},
		[]string{"result"}, // result: hit, miss, store
	)

	// DatabaseOperations counts persistence backend operations
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enerframe_database_operations_total",
			Help: "Total number of persistence backend operations",
		},
		[]string{"backend", "operation", "status"}, // operation: get, set, exists, delete, list; status: success, error
	)

	// DatabaseOperationDuration measures backend operation latency
	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enerframe_database_operation_duration_seconds",
			Help:    "Persistence backend operation latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		},
		[]string{"backend", "operation"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enerframe_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordFetch records the outcome and duration of a dataset fetch.
func RecordFetch(dataset, status string, duration time.Duration) {
	FetchesTotal.WithLabelValues(dataset, status).Inc()
	FetchDuration.WithLabelValues(dataset, status).Observe(duration.Seconds())
}

// RecordDatabaseOperation records a persistence backend operation.
func RecordDatabaseOperation(backend, operation, status string, duration time.Duration) {
	DatabaseOperations.WithLabelValues(backend, operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordError records an error.
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
