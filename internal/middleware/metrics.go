package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// Analytics API request metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIRequestSize     *prometheus.HistogramVec

	// Token metrics
	TokenAcquisitions     *prometheus.CounterVec
	TokenAcquisitionError *prometheus.CounterVec

	// Row append metrics
	RowsAppended *prometheus.CounterVec

	// Login callback server metrics
	CallbackRequestsTotal *prometheus.CounterVec
}

var (
	metrics *PrometheusMetrics
)

// InitMetrics registers all metrics with the given registerer
func InitMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	metrics = &PrometheusMetrics{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publisher_api_requests_total",
				Help: "Total number of analytics API requests",
			},
			[]string{"operation", "status"},
		),
		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "publisher_api_request_duration_seconds",
				Help:    "Analytics API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		APIRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "publisher_api_request_size_bytes",
				Help:    "Analytics API request body size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"operation"},
		),

		TokenAcquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publisher_token_acquisitions_total",
				Help: "Total number of tokens acquired from the identity provider",
			},
			[]string{"flow"},
		),
		TokenAcquisitionError: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publisher_token_acquisition_errors_total",
				Help: "Total number of failed token acquisitions",
			},
			[]string{"flow"},
		),

		RowsAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publisher_rows_appended_total",
				Help: "Total number of rows accepted by the analytics API",
			},
			[]string{"table"},
		),

		CallbackRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "publisher_login_callback_requests_total",
				Help: "Total number of requests served by the login callback server",
			},
			[]string{"method", "endpoint", "status"},
		),
	}

	return metrics
}

// PrometheusMiddleware is a Gin middleware that records callback server requests
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if metrics == nil {
			return
		}

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.CallbackRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
	}
}

// RecordAPIRequest records one analytics API call. status is the HTTP status or "error".
func RecordAPIRequest(operation, status string, duration time.Duration, requestBytes int) {
	if metrics == nil {
		return
	}

	metrics.APIRequestsTotal.WithLabelValues(operation, status).Inc()
	metrics.APIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if requestBytes > 0 {
		metrics.APIRequestSize.WithLabelValues(operation).Observe(float64(requestBytes))
	}
}

// RecordTokenAcquisition records a token fetch from the identity provider
func RecordTokenAcquisition(flow string, err error) {
	if metrics == nil {
		return
	}

	if err != nil {
		metrics.TokenAcquisitionError.WithLabelValues(flow).Inc()
		return
	}
	metrics.TokenAcquisitions.WithLabelValues(flow).Inc()
}

// RecordRowsAppended records rows accepted for a table
func RecordRowsAppended(table string, rows int) {
	if metrics == nil {
		return
	}

	metrics.RowsAppended.WithLabelValues(table).Add(float64(rows))
}

// WriteTextfile writes the gathered metrics in the node exporter textfile format
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, gatherer)
}
