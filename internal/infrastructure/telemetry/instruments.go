package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Attribute keys shared by the finance, database and HTTP instruments
var (
	AttrTenantID    = attribute.Key("tenant_id")
	AttrCompanyID   = attribute.Key("company_id")
	AttrOperation   = attribute.Key("operation")
	AttrSource      = attribute.Key("source")
	AttrWarningCode = attribute.Key("warning_code")
	AttrOutcome     = attribute.Key("outcome")

	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")

	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")
)

// Histogram bucket boundaries in seconds
var (
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	DBDurationBuckets   = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	// AggregationDurationBuckets cover a fan-out over the three ledger sources
	AggregationDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// InstrumentSet declares instruments on one meter and keeps every creation
// error, so a constructor can declare all of its instruments and check once:
//
//	set := telemetry.NewInstrumentSet(meter)
//	total := set.Counter("finance_aggregation_total", "...", "{operation}")
//	if err := set.Err(); err != nil { ... }
//
// A failed instrument is still safe to use; a nil one becomes a no-op.
type InstrumentSet struct {
	meter metric.Meter
	errs  []error
}

// NewInstrumentSet creates an InstrumentSet on meter
func NewInstrumentSet(meter metric.Meter) *InstrumentSet {
	return &InstrumentSet{meter: meter}
}

// Counter declares a monotonic int64 counter
func (s *InstrumentSet) Counter(name, description, unit string) metric.Int64Counter {
	c, err := s.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		s.fail(name, err)
	}
	if c == nil {
		return noop.Int64Counter{}
	}
	return c
}

// UpDownCounter declares an int64 counter that may decrease
func (s *InstrumentSet) UpDownCounter(name, description, unit string) metric.Int64UpDownCounter {
	c, err := s.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		s.fail(name, err)
	}
	if c == nil {
		return noop.Int64UpDownCounter{}
	}
	return c
}

// Histogram declares a float64 histogram with explicit buckets when given
func (s *InstrumentSet) Histogram(name, description, unit string, buckets []float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	h, err := s.meter.Float64Histogram(name, opts...)
	if err != nil {
		s.fail(name, err)
	}
	if h == nil {
		return noop.Float64Histogram{}
	}
	return h
}

// Gauge declares an int64 gauge
func (s *InstrumentSet) Gauge(name, description, unit string) metric.Int64Gauge {
	g, err := s.meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		s.fail(name, err)
	}
	if g == nil {
		return noop.Int64Gauge{}
	}
	return g
}

// Err returns the joined creation errors, if any
func (s *InstrumentSet) Err() error {
	return errors.Join(s.errs...)
}

func (s *InstrumentSet) fail(name string, err error) {
	s.errs = append(s.errs, fmt.Errorf("instrument %s: %w", name, err))
}

// inc adds one to c
func inc(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// observe records d in seconds
func observe(ctx context.Context, h metric.Float64Histogram, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}
