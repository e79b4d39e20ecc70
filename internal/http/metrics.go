package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/jarvis/internal/http"

// unmatchedRoute labels requests that hit no registered route, so scanners
// probing random paths do not create new series.
const unmatchedRoute = "unmatched"

// HTTPMetrics records request counts, latency, response size and in-flight
// requests through the global OTel meter.
type HTTPMetrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter
}

// NewHTTPMetrics creates a new HTTPMetrics instance.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &HTTPMetrics{
		meter:  otel.Meter(httpInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

// init creates the instruments. An instrument that fails to register stays
// nil and is skipped.
func (m *HTTPMetrics) init() {
	var err error
	warn := func(name string) {
		if err != nil {
			m.logger.Warn("failed to create http instrument", zap.String("instrument", name), zap.Error(err))
		}
	}

	m.requestsTotal, err = m.meter.Int64Counter("jarvis.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status."),
		metric.WithUnit("{request}"))
	warn("requests_total")

	// Provider calls dominate latency, so buckets reach well past the
	// per-attempt timeout.
	m.requestDur, err = m.meter.Float64Histogram("jarvis.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30))
	warn("request_duration_seconds")

	m.responseSize, err = m.meter.Int64Histogram("jarvis.http.response_size_bytes",
		metric.WithDescription("HTTP response body size by method, route and status."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(64, 256, 1024, 4096, 16384, 65536))
	warn("response_size_bytes")

	m.activeRequests, err = m.meter.Int64UpDownCounter("jarvis.http.active_requests",
		metric.WithDescription("HTTP requests currently in flight."),
		metric.WithUnit("{request}"))
	warn("active_requests")
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, 1)
				defer m.activeRequests.Add(ctx, -1)
			}

			err := next(c)

			// Errors are rendered by the error handler after the chain
			// returns, so take the status from the error when there is one.
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = 500
				}
			}

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", routeLabel(c.Path())),
				attribute.Int("status", status),
			)
			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, attrs)
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.responseSize != nil {
				m.responseSize.Record(ctx, c.Response().Size, attrs)
			}
			return err
		}
	}
}

// routeLabel returns the route template echo matched. Templates never carry
// parameter values, so only unmatched requests need folding.
func routeLabel(path string) string {
	if path == "" || path == "/*" {
		return unmatchedRoute
	}
	return path
}
