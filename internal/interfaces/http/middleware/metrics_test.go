package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// setupTestMeter sets up a test meter provider and reader.
func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})

	return mp, reader
}

// disabledProviders returns providers with both signals off
func disabledProviders(t *testing.T) *telemetry.Providers {
	t.Helper()

	p, err := telemetry.Setup(context.Background(), telemetry.Options{ServiceName: "test"}, zap.NewNop())
	require.NoError(t, err)
	return p
}

// requestTotals collects the request counter data points.
func requestTotals(t *testing.T, reader *sdkmetric.ManualReader) []metricdata.DataPoint[int64] {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http_server_request_total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok, "expected Sum data for counter")
				return sum.DataPoints
			}
		}
	}
	require.FailNow(t, "http_server_request_total metric not found")
	return nil
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	for name, cfg := range map[string]HTTPMetricsConfig{
		"disabled":           {Enabled: false},
		"nil providers":      {Enabled: true},
		"metrics turned off": {Enabled: true, Providers: disabledProviders(t)},
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(HTTPMetrics(cfg))
			router.GET("/test", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHTTPMetricsWithMeter_RequestCounter(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/api/v1/finance/ledger/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/finance/ledger/"+string(rune('1'+i)), nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	points := requestTotals(t, reader)
	require.Len(t, points, 1, "route pattern keeps one series")
	assert.Equal(t, int64(3), points[0].Value)

	route, ok := points[0].Attributes.Value(attribute.Key("http.route"))
	require.True(t, ok)
	assert.Equal(t, "/api/v1/finance/ledger/:id", route.AsString())
}

func TestHTTPMetricsWithMeter_TenantAndStatusGroup(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(TenantMiddleware())
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/finance/totals", func(c *gin.Context) {
		c.Status(http.StatusForbidden)
	})

	req := httptest.NewRequest(http.MethodGet, "/finance/totals", nil)
	req.Header.Set(DeviceHeaderKey, "42")
	router.ServeHTTP(httptest.NewRecorder(), req)

	points := requestTotals(t, reader)
	require.Len(t, points, 1)

	tenant, ok := points[0].Attributes.Value(attribute.Key("tenant_id"))
	require.True(t, ok)
	assert.Equal(t, int64(42), tenant.AsInt64())

	group, ok := points[0].Attributes.Value(AttrStatusGroup)
	require.True(t, ok)
	assert.Equal(t, "4xx", group.AsString())
}

func TestHTTPMetricsWithMeter_NoTenantAttributeWithoutDevice(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(TenantMiddleware())
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/finance/totals", func(c *gin.Context) {
		c.Status(http.StatusForbidden)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/finance/totals", nil))

	points := requestTotals(t, reader)
	require.Len(t, points, 1)
	_, ok := points[0].Attributes.Value(attribute.Key("tenant_id"))
	assert.False(t, ok)
}

func TestGetRoutePattern_UnmatchedRoute(t *testing.T) {
	router := gin.New()
	var route string
	router.NoRoute(func(c *gin.Context) {
		route = getRoutePattern(c)
		c.Status(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, "unknown", route)
}

func TestHTTPMetricsStatusGroup(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		201: "2xx",
		304: "3xx",
		403: "4xx",
		422: "4xx",
		500: "5xx",
		100: "other",
	}
	for code, want := range tests {
		assert.Equal(t, want, HTTPMetricsStatusGroup(code), "status %d", code)
	}
}

func TestHTTPMetricsWithMeter_DurationAndSize(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/finance/totals", func(c *gin.Context) {
		c.String(http.StatusOK, "income=10.00")
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/finance/totals", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	counts := map[string]uint64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok {
				for _, dp := range h.DataPoints {
					counts[m.Name] += dp.Count
				}
			}
		}
	}
	assert.Equal(t, uint64(1), counts["http_server_request_duration_seconds"])
	assert.Equal(t, uint64(1), counts["http_server_response_size_bytes"])
}
