package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelflow_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelflow_http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"method", "route"},
	)

	httpActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labelflow_http_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"method"},
	)

	httpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelflow_http_errors_total",
			Help: "HTTP requests that failed, by error code",
		},
		[]string{"route", "code"},
	)
)

// MetricsConfig configures the metrics middleware
type MetricsConfig struct {
	Skip func(*fiber.Ctx) bool
}

// DefaultMetricsConfig returns default metrics config
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Skip: HealthSkipper,
	}
}

// Metrics records Prometheus request metrics labelled by route pattern, so
// task and item IDs do not blow up label cardinality
func Metrics(config MetricsConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if config.Skip != nil && config.Skip(c) {
			return c.Next()
		}

		start := time.Now()
		method := c.Method()

		httpActiveRequests.WithLabelValues(method).Inc()
		defer httpActiveRequests.WithLabelValues(method).Dec()

		err := c.Next()

		// Route is resolved only after routing ran
		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			status = errorStatus(err)
			httpErrorsTotal.WithLabelValues(route, apperrors.GetCode(err)).Inc()
		}

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		httpRequestSize.WithLabelValues(method, route).Observe(float64(len(c.Request().Body())))

		return err
	}
}

// errorStatus is the HTTP status an error will be rendered with
func errorStatus(err error) int {
	if fe, ok := err.(*fiber.Error); ok {
		return fe.Code
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr.StatusCode
	}
	return fiber.StatusInternalServerError
}
