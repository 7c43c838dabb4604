package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics holds the business counters of the ledger. A nil
// *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	settlements       metric.Int64Counter
	settlementLines   metric.Int64Counter
	settlementRejects metric.Int64Counter
	settledAmount     metric.Float64Counter
	journalEntries    metric.Int64Counter
	creditMovements   metric.Int64Counter
	closingDelta      metric.Float64Histogram
}

// NewLedgerMetrics registers the instruments on the global meter provider
func NewLedgerMetrics() (*LedgerMetrics, error) {
	meter := otel.GetMeterProvider().Meter(TracerName)
	m := &LedgerMetrics{}
	var err error
	if m.settlements, err = meter.Int64Counter("ledger.settlement.batches",
		metric.WithDescription("Committed settlement batches")); err != nil {
		return nil, err
	}
	if m.settlementLines, err = meter.Int64Counter("ledger.settlement.lines",
		metric.WithDescription("Settled payment lines")); err != nil {
		return nil, err
	}
	if m.settlementRejects, err = meter.Int64Counter("ledger.settlement.rejected",
		metric.WithDescription("Rejected settlement batches by error code")); err != nil {
		return nil, err
	}
	if m.settledAmount, err = meter.Float64Counter("ledger.settlement.amount",
		metric.WithDescription("Settled amount"), metric.WithUnit("{currency}")); err != nil {
		return nil, err
	}
	if m.journalEntries, err = meter.Int64Counter("ledger.journal.entries",
		metric.WithDescription("Journal writes by operation")); err != nil {
		return nil, err
	}
	if m.creditMovements, err = meter.Int64Counter("ledger.credit.movements",
		metric.WithDescription("Applied credit movements by type")); err != nil {
		return nil, err
	}
	if m.closingDelta, err = meter.Float64Histogram("ledger.closing.discrepancy",
		metric.WithDescription("Absolute total discrepancy per closing")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordSettlement counts a committed batch
func (m *LedgerMetrics) RecordSettlement(ctx context.Context, kind string, lines int, amount decimal.Decimal) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.settlements.Add(ctx, 1, attrs)
	m.settlementLines.Add(ctx, int64(lines), attrs)
	f, _ := amount.Abs().Float64()
	m.settledAmount.Add(ctx, f, attrs)
}

// RecordSettlementRejected counts a rejected batch
func (m *LedgerMetrics) RecordSettlementRejected(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.settlementRejects.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordJournal counts a journal insert or delete
func (m *LedgerMetrics) RecordJournal(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.journalEntries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordCreditMovement counts a credit movement
func (m *LedgerMetrics) RecordCreditMovement(ctx context.Context, movementType string) {
	if m == nil {
		return
	}
	m.creditMovements.Add(ctx, 1, metric.WithAttributes(attribute.String("type", movementType)))
}

// RecordClosing records the discrepancy of a closing
func (m *LedgerMetrics) RecordClosing(ctx context.Context, discrepancy decimal.Decimal) {
	if m == nil {
		return
	}
	f, _ := discrepancy.Abs().Float64()
	m.closingDelta.Record(ctx, f)
}
