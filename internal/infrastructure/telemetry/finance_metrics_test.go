package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFinanceMetrics_RequiresMeter(t *testing.T) {
	_, err := NewFinanceMetrics(FinanceMetricsConfig{})
	assert.ErrorIs(t, err, ErrMeterNil)
	assert.Equal(t, "NewFinanceMetrics: meter cannot be nil", err.Error())
}

func TestFinanceMetrics_Record(t *testing.T) {
	provider, reader := newTestMeterProvider(t)
	ctx := context.Background()

	fm, err := NewFinanceMetrics(FinanceMetricsConfig{Meter: provider.Meter("finance")})
	require.NoError(t, err)

	fm.RecordAggregation(ctx, "totals", 120*time.Millisecond, false)
	fm.RecordAggregation(ctx, "transactions", 80*time.Millisecond, true)
	fm.RecordSourceFailure(ctx, "purchases")
	fm.RecordWarning(ctx, "SOURCE_FAILED")
	fm.RecordWarning(ctx, "SOURCE_FAILED")
	fm.RecordSecurityRejection(ctx, "budgets")
	fm.RecordCacheLookup(ctx, true)
	fm.RecordCacheLookup(ctx, false)

	rm := collect(t, reader)
	assert.Equal(t, int64(1), counterValue(rm, "finance_aggregation_total", AttrOutcome.String("partial")))
	assert.Equal(t, int64(1), counterValue(rm, "finance_source_failures_total", AttrSource.String("purchases")))
	assert.Equal(t, int64(2), counterValue(rm, "finance_degradation_warnings_total", AttrWarningCode.String("SOURCE_FAILED")))
	assert.Equal(t, int64(1), counterValue(rm, "finance_security_rejections_total"))
	assert.Equal(t, int64(1), counterValue(rm, "finance_totals_cache_lookups_total", AttrOutcome.String("hit")))
	assert.True(t, findMetric(rm, "finance_aggregation_duration_seconds"))
}

func TestFinanceMetrics_HealHook(t *testing.T) {
	provider, reader := newTestMeterProvider(t)
	ctx := context.Background()

	fm, err := NewFinanceMetrics(FinanceMetricsConfig{Meter: provider.Meter("finance")})
	require.NoError(t, err)

	hook := fm.HealHook()
	hook(ctx, "budgets", true, nil)
	hook(ctx, "sales", false, errors.New("permission denied"))

	rm := collect(t, reader)
	assert.Equal(t, int64(1), counterValue(rm, "finance_schema_heal_total",
		AttrDBTable.String("budgets"), AttrOutcome.String(HealOutcomeHealed)))
	assert.Equal(t, int64(1), counterValue(rm, "finance_schema_heal_total",
		AttrDBTable.String("sales"), AttrOutcome.String(HealOutcomeFailed)))
}

func TestFinanceMetrics_NilIsSafe(t *testing.T) {
	var fm *FinanceMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		fm.RecordAggregation(ctx, "totals", time.Second, false)
		fm.RecordSourceFailure(ctx, "sales")
		fm.RecordWarning(ctx, "NO_SCOPE")
		fm.RecordSecurityRejection(ctx, "totals")
		fm.RecordCacheLookup(ctx, true)
		fm.HealHook()(ctx, "budgets", true, nil)
	})
}
