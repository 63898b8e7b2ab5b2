package observability

import (
	"net/http"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, status code, and host
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paket_http_requests_total",
			Help: "Total number of HTTP requests by method and status",
		},
		[]string{"method", "status_code", "source"},
	)

	// HTTPRequestDuration tracks HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paket_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"method", "source"},
	)

	// MetadataCacheHitsTotal counts metadata disk cache hits
	MetadataCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paket_metadata_cache_hits_total",
			Help: "Total number of metadata disk cache hits",
		},
	)

	// MetadataCacheMissesTotal counts metadata disk cache misses by reason
	MetadataCacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paket_metadata_cache_misses_total",
			Help: "Total number of metadata disk cache misses by reason",
		},
		[]string{"reason"}, // absent, stale_schema
	)

	// PackageDownloadsTotal counts package downloads by status
	PackageDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paket_package_downloads_total",
			Help: "Total number of package downloads by status",
		},
		[]string{"status"}, // success, failure, cached
	)

	// CircuitBreakerState tracks circuit breaker state by host
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paket_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"host"},
	)
)

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// CounterValue reads the current value of a counter, for tests.
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
