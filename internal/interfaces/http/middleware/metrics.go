package middleware

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AttrStatusGroup is the status class attribute (2xx, 4xx, 5xx)
var AttrStatusGroup = attribute.Key("http.status_group")

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// Providers supplies the meter; nil or metrics-disabled providers turn the middleware off.
	Providers *telemetry.Providers
	// Enabled controls whether metrics collection is active.
	Enabled bool
}

// responseSizeBuckets spans empty acks up to large ledger exports
var responseSizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}

// httpMetrics holds all HTTP-related metrics instruments.
type httpMetrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	responseSize    metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
}

// newHTTPMetrics creates all HTTP metrics instruments from a meter.
func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	set := telemetry.NewInstrumentSet(meter)
	m := &httpMetrics{
		requestTotal: set.Counter("http_server_request_total",
			"Total number of HTTP requests", "{request}"),
		requestDuration: set.Histogram("http_server_request_duration_seconds",
			"HTTP request latency distribution in seconds", "s", telemetry.HTTPDurationBuckets),
		responseSize: set.Histogram("http_server_response_size_bytes",
			"HTTP response body size distribution in bytes", "By", responseSizeBuckets),
		activeRequests: set.UpDownCounter("http_server_active_requests",
			"Number of currently active HTTP requests", "{request}"),
	}
	if err := set.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// HTTPMetrics returns a Gin middleware that collects HTTP metrics:
// - http_server_request_total: count by method, route, status code, status group and tenant_id
// - http_server_request_duration_seconds: latency by method and route
// - http_server_response_size_bytes: response size by method and route
// - http_server_active_requests: in-flight requests
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || !cfg.Providers.MetricsEnabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return HTTPMetricsWithMeter(cfg.Providers.Meter("http.server"), true)
}

// HTTPMetricsWithMeter returns HTTP metrics middleware using an existing meter.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		recordHTTPMetrics(ctx, metrics, c.Request.Method, getRoutePattern(c),
			c.Writer.Status(), GetDeviceID(c), time.Since(start), c.Writer.Size())
	}
}

// getRoutePattern returns the matched route pattern (e.g., "/api/v1/finance/ledger/:id")
// instead of the raw path to keep cardinality low.
func getRoutePattern(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return "unknown"
	}
	return route
}

// recordHTTPMetrics records all HTTP metrics for a request.
func recordHTTPMetrics(
	ctx context.Context,
	metrics *httpMetrics,
	method, route string,
	statusCode int,
	deviceID int64,
	duration time.Duration,
	responseSize int,
) {
	requestAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
		telemetry.AttrHTTPStatusCode.Int(statusCode),
		AttrStatusGroup.String(HTTPMetricsStatusGroup(statusCode)),
	}
	if deviceID > 0 {
		requestAttrs = append(requestAttrs, telemetry.AttrTenantID.Int64(deviceID))
	}
	metrics.requestTotal.Add(ctx, 1, metric.WithAttributes(requestAttrs...))

	base := metric.WithAttributes(
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
	)
	metrics.requestDuration.Record(ctx, duration.Seconds(), base)

	if responseSize > 0 {
		metrics.responseSize.Record(ctx, float64(responseSize), base)
	}
}

// HTTPMetricsStatusGroup returns the status class of a status code.
func HTTPMetricsStatusGroup(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "other"
	}
}
