package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "finance", "totals",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, int64(42)),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "finance.totals", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)
	require.Len(t, spans[0].Attributes(), 1)
	assert.Equal(t, int64(42), spans[0].Attributes()[0].Value.AsInt64())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.fetch")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSource, "sales",
		telemetry.SpanAttrPartial, true,
		telemetry.SpanAttrCompanyID, 3,
		"sources", []string{"manual", "sales", "purchases"},
		123, "non-string key is skipped",
		"orphan_key",
	)
	span.End()

	got := map[string]any{}
	for _, kv := range sr.Ended()[0].Attributes() {
		got[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Len(t, got, 4)
	assert.Equal(t, "sales", got[telemetry.SpanAttrSource])
	assert.Equal(t, true, got[telemetry.SpanAttrPartial])
	assert.Equal(t, int64(3), got[telemetry.SpanAttrCompanyID])
	assert.Equal(t, []string{"manual", "sales", "purchases"}, got["sources"])
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	t.Run("error sets status and exception event", func(t *testing.T) {
		_, span := telemetry.StartSpan(context.Background(), "ledger.save")
		telemetry.RecordError(span, errors.New("relation does not exist"))
		span.End()

		ended := sr.Ended()
		last := ended[len(ended)-1]
		assert.Equal(t, codes.Error, last.Status().Code)
		assert.Equal(t, "relation does not exist", last.Status().Description)
		require.NotEmpty(t, last.Events())
		assert.Equal(t, "exception", last.Events()[0].Name)
	})

	t.Run("nil error leaves status unset", func(t *testing.T) {
		_, span := telemetry.StartSpan(context.Background(), "ledger.save")
		telemetry.RecordError(span, nil)
		span.End()

		ended := sr.Ended()
		assert.Equal(t, codes.Unset, ended[len(ended)-1].Status().Code)
	})
}

func TestNestedSpans_ShareTrace(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "finance", "totals")
	_, child := telemetry.StartSpan(ctx, "cogs.compute")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	childSpan, parentSpan := spans[0], spans[1]
	assert.Equal(t, parentSpan.SpanContext().TraceID(), childSpan.SpanContext().TraceID())
	assert.Equal(t, parentSpan.SpanContext().SpanID(), childSpan.Parent().SpanID())
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.RecordError(nil, errors.New("boom"))
		telemetry.SetAttributes(nil, "key", "value")
	})
}
