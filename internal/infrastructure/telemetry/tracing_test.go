package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

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

	ctx, span := telemetry.StartServiceSpan(context.Background(), "settlement", "settle_batch",
		telemetry.SpanAttrLines, 3,
		telemetry.SpanAttrAmount, decimal.RequireFromString("12.50"),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.AddEvent(span, "validated")
	telemetry.RecordError(span, errors.New("boom"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "settlement.settle_batch", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 2) // validated + exception

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "3", attrs[telemetry.SpanAttrLines])
	assert.Equal(t, "12.5", attrs[telemetry.SpanAttrAmount])
}

func TestNilLedgerMetricsIsSafe(t *testing.T) {
	var m *telemetry.LedgerMetrics
	assert.NotPanics(t, func() {
		m.RecordSettlement(context.Background(), "payable", 2, decimal.NewFromInt(10))
		m.RecordJournal(context.Background(), "insert")
		m.RecordClosing(context.Background(), decimal.Zero)
	})

	live, err := telemetry.NewLedgerMetrics()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		live.RecordCreditMovement(context.Background(), "deducao")
		live.RecordSettlementRejected(context.Background(), "VALUE_EXCEEDS_REMAINING")
	})
}
