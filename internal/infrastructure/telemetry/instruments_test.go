package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInstrumentSet(t *testing.T) {
	provider, reader := newTestMeterProvider(t)
	ctx := context.Background()

	set := NewInstrumentSet(provider.Meter("test"))
	total := set.Counter("finance_test_total", "test counter", "{op}")
	inflight := set.UpDownCounter("finance_test_inflight", "test updown", "{op}")
	latency := set.Histogram("finance_test_seconds", "test histogram", "s", AggregationDurationBuckets)
	plain := set.Histogram("finance_plain_seconds", "no buckets", "s", nil)
	entries := set.Gauge("finance_test_entries", "test gauge", "{entry}")
	require.NoError(t, set.Err())

	inc(ctx, total, AttrSource.String("sales"))
	inc(ctx, total, AttrSource.String("sales"))
	inflight.Add(ctx, 1)
	observe(ctx, latency, 150*time.Millisecond, AttrOperation.String("totals"))
	plain.Record(ctx, 1)
	entries.Record(ctx, 3, metric.WithAttributes(AttrTenantID.Int64(42)))

	rm := collect(t, reader)
	assert.Equal(t, int64(2), counterValue(rm, "finance_test_total", AttrSource.String("sales")))
	for _, name := range []string{"finance_test_inflight", "finance_test_seconds", "finance_plain_seconds", "finance_test_entries"} {
		assert.True(t, findMetric(rm, name), name)
	}
	assert.Equal(t, AggregationDurationBuckets, histogramBounds(rm, "finance_test_seconds"))
}

func TestInstrumentSet_CollectsErrors(t *testing.T) {
	provider, _ := newTestMeterProvider(t)

	set := NewInstrumentSet(provider.Meter("test"))
	c := set.Counter("", "unnamed", "{op}")
	h := set.Histogram("9starts-with-digit", "bad name", "s", nil)

	err := set.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instrument 9starts-with-digit")
	// still safe to use
	c.Add(context.Background(), 1)
	h.Record(context.Background(), 1)
}

func TestDefaultBuckets_AreAscending(t *testing.T) {
	for name, buckets := range map[string][]float64{
		"http":        HTTPDurationBuckets,
		"db":          DBDurationBuckets,
		"aggregation": AggregationDurationBuckets,
	} {
		for i := 1; i < len(buckets); i++ {
			assert.Less(t, buckets[i-1], buckets[i], name)
		}
	}
}

func histogramBounds(rm metricdata.ResourceMetrics, name string) []float64 {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == name && len(h.DataPoints) > 0 {
				return h.DataPoints[0].Bounds
			}
		}
	}
	return nil
}
