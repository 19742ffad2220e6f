package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Heal outcomes reported by FinanceMetrics.HealHook
const (
	HealOutcomeHealed = "healed"
	HealOutcomeFailed = "failed"
)

// FinanceMetrics records aggregation latency and outcome, failed ledger
// sources, degradation warnings and schema heal attempts.
//
// All methods are safe to call on a nil *FinanceMetrics.
type FinanceMetrics struct {
	logger *zap.Logger

	aggregationDuration metric.Float64Histogram
	aggregationTotal    metric.Int64Counter
	sourceFailures      metric.Int64Counter
	warnings            metric.Int64Counter
	heals               metric.Int64Counter
	securityRejections  metric.Int64Counter
	cacheLookups        metric.Int64Counter
}

// FinanceMetricsConfig holds configuration for finance metrics.
type FinanceMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewFinanceMetrics creates the finance metric instruments.
func NewFinanceMetrics(cfg FinanceMetricsConfig) (*FinanceMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	set := NewInstrumentSet(cfg.Meter)
	fm := &FinanceMetrics{
		aggregationDuration: set.Histogram("finance_aggregation_duration_seconds",
			"Duration of finance read operations that fan out over ledger sources", "s", AggregationDurationBuckets),
		aggregationTotal: set.Counter("finance_aggregation_total",
			"Finance read operations by outcome", "{operation}"),
		sourceFailures: set.Counter("finance_source_failures_total",
			"Ledger sources that failed during an aggregation", "{source}"),
		warnings: set.Counter("finance_degradation_warnings_total",
			"Degradation warnings attached to finance responses", "{warning}"),
		heals: set.Counter("finance_schema_heal_total",
			"Isolation column heal attempts by outcome", "{attempt}"),
		securityRejections: set.Counter("finance_security_rejections_total",
			"Requests rejected for missing or mismatched tenant context", "{request}"),
		cacheLookups: set.Counter("finance_totals_cache_lookups_total",
			"Totals cache lookups by outcome", "{lookup}"),
	}
	if err := set.Err(); err != nil {
		return nil, err
	}
	fm.logger = logger
	return fm, nil
}

// RecordAggregation records one finance read operation.
func (fm *FinanceMetrics) RecordAggregation(ctx context.Context, operation string, d time.Duration, partial bool) {
	if fm == nil {
		return
	}
	outcome := "complete"
	if partial {
		outcome = "partial"
	}
	observe(ctx, fm.aggregationDuration, d, AttrOperation.String(operation))
	inc(ctx, fm.aggregationTotal, AttrOperation.String(operation), AttrOutcome.String(outcome))
}

// RecordSourceFailure counts a ledger source that could not be read.
func (fm *FinanceMetrics) RecordSourceFailure(ctx context.Context, source string) {
	if fm == nil {
		return
	}
	inc(ctx, fm.sourceFailures, AttrSource.String(source))
}

// RecordWarning counts a degradation warning by code.
func (fm *FinanceMetrics) RecordWarning(ctx context.Context, code string) {
	if fm == nil {
		return
	}
	inc(ctx, fm.warnings, AttrWarningCode.String(code))
}

// RecordSecurityRejection counts an operation refused for tenant reasons.
func (fm *FinanceMetrics) RecordSecurityRejection(ctx context.Context, operation string) {
	if fm == nil {
		return
	}
	inc(ctx, fm.securityRejections, AttrOperation.String(operation))
}

// RecordCacheLookup counts a totals cache hit or miss.
func (fm *FinanceMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if fm == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	inc(ctx, fm.cacheLookups, AttrOutcome.String(outcome))
}

// HealHook returns a callback for the schema healer that counts every heal
// attempt and logs failures.
func (fm *FinanceMetrics) HealHook() func(ctx context.Context, table string, healed bool, err error) {
	return func(ctx context.Context, table string, healed bool, err error) {
		if fm == nil {
			return
		}
		outcome := HealOutcomeHealed
		if err != nil || !healed {
			outcome = HealOutcomeFailed
			fm.logger.Debug("Isolation column heal failed", zap.String("table", table), zap.Error(err))
		}
		inc(ctx, fm.heals, AttrDBTable.String(table), AttrOutcome.String(outcome))
	}
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewFinanceMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
