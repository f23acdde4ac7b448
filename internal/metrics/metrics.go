package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics holds HTTP-related Prometheus metrics
type HTTPMetrics struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsTotal    *prometheus.CounterVec
	RequestsInFlight prometheus.Gauge
}

// NewHTTPMetrics creates HTTP metrics collectors
func NewHTTPMetrics(namespace string) *HTTPMetrics {
	return &HTTPMetrics{
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
	}
}

// ProcessingMetrics holds image processing Prometheus metrics
type ProcessingMetrics struct {
	ProcessingDuration *prometheus.HistogramVec
	ImagesTotal        *prometheus.CounterVec
	ProcessorDuration  *prometheus.HistogramVec
	OutputPixels       prometheus.Histogram
}

// NewProcessingMetrics creates image processing metrics collectors
func NewProcessingMetrics(namespace string) *ProcessingMetrics {
	return &ProcessingMetrics{
		ProcessingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "image_processing_duration_seconds",
				Help:      "Decode, process and encode duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
		ImagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "images_processed_total",
				Help:      "Total number of images processed",
			},
			[]string{"format", "status"},
		),
		ProcessorDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "image_processor_duration_seconds",
				Help:      "Individual web processor duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"processor"},
		),
		OutputPixels: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "image_output_pixels",
				Help:      "Pixel count of rendered images",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
	}
}

// CacheMetrics holds rendered variant cache Prometheus metrics
type CacheMetrics struct {
	Hits           *prometheus.CounterVec
	Misses         *prometheus.CounterVec
	Evictions      prometheus.Counter
	LookupDuration *prometheus.HistogramVec
}

// NewCacheMetrics creates cache metrics collectors
func NewCacheMetrics(namespace string) *CacheMetrics {
	return &CacheMetrics{
		Hits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits by tier",
			},
			[]string{"tier"},
		),
		Misses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses by tier",
			},
			[]string{"tier"},
		),
		Evictions: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Total number of expired variants removed",
			},
		),
		LookupDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_lookup_duration_seconds",
				Help:      "Cache lookup duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"tier"},
		),
	}
}

// StorageMetrics holds storage operation Prometheus metrics
type StorageMetrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationsTotal   *prometheus.CounterVec
	BytesTransferred  *prometheus.CounterVec
}

// NewStorageMetrics creates storage metrics collectors
func NewStorageMetrics(namespace string) *StorageMetrics {
	return &StorageMetrics{
		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_operation_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation", "status"},
		),
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		BytesTransferred: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_bytes_transferred_total",
				Help:      "Total number of bytes transferred to/from storage",
			},
			[]string{"operation"},
		),
	}
}

// DatabaseMetrics holds database operation Prometheus metrics
type DatabaseMetrics struct {
	QueryDuration     *prometheus.HistogramVec
	QueriesTotal      *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
}

// NewDatabaseMetrics creates database metrics collectors
func NewDatabaseMetrics(namespace string) *DatabaseMetrics {
	return &DatabaseMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "database_query_duration_seconds",
				Help:      "Database query duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation", "status"},
		),
		QueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "database_queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "status"},
		),
		ConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "database_connections_active",
				Help:      "Number of active database connections",
			},
		),
	}
}

// RecordDuration helper to record operation duration
func RecordDuration(start time.Time, histogram prometheus.Observer) {
	duration := time.Since(start).Seconds()
	histogram.Observe(duration)
}
