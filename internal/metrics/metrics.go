// Package metrics provides Prometheus metrics for spbridge.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream labels for UpstreamError.
const (
	UpstreamGraph = "graph"
	UpstreamS3    = "s3"
)

var (
	browseRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spbridge_browse_requests_total",
			Help: "Total browse requests by resolved level and result",
		},
		[]string{"level", "result"},
	)

	transferFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spbridge_transfer_files_total",
			Help: "Total requested files by transfer outcome",
		},
		[]string{"status"},
	)

	transferBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spbridge_transfer_bytes_total",
			Help: "Total bytes written to object storage",
		},
	)

	transferBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spbridge_transfer_batch_duration_seconds",
			Help:    "Duration of a whole transfer batch in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	upstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spbridge_upstream_errors_total",
			Help: "Total upstream call failures by upstream and error kind",
		},
		[]string{"upstream", "kind"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spbridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spbridge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBrowse records one browse request. level is empty when resolution
// failed before a level was known.
func RecordBrowse(level string, success bool) {
	if level == "" {
		level = "unknown"
	}

	result := "success"
	if !success {
		result = "error"
	}

	browseRequestsTotal.WithLabelValues(level, result).Inc()
}

// RecordTransferFile records the outcome of one requested file.
func RecordTransferFile(status string, bytes int64) {
	transferFilesTotal.WithLabelValues(status).Inc()

	if bytes > 0 {
		transferBytesTotal.Add(float64(bytes))
	}
}

// RecordTransferBatch records the wall time of one transfer batch.
func RecordTransferBatch(duration time.Duration) {
	transferBatchDuration.Observe(duration.Seconds())
}

// RecordUpstreamError records a failed call to graph or S3. kind is a
// catalog.KindLabel value.
func RecordUpstreamError(upstream, kind string) {
	upstreamErrorsTotal.WithLabelValues(upstream, kind).Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
