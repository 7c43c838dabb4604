package event

import (
	"context"
	"sync"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	seen   []shared.DomainEvent
	err    error
	panics bool
}

func newRecordingHandler(types ...string) *recordingHandler {
	return &recordingHandler{types: types}
}

func (h *recordingHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.mu.Lock()
	h.seen = append(h.seen, evt)
	err, panics := h.err, h.panics
	h.mu.Unlock()
	if panics {
		panic("boom")
	}
	return err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func recordedEvent(tenant uuid.UUID, value string) *finance.CashTransactionRecordedEvent {
	return &finance.CashTransactionRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(finance.EventCashTransactionRecorded, finance.AggregateCashTransaction, uuid.New(), tenant, uuid.New()),
		BankAccountID:   uuid.New(),
		Type:            finance.TransactionEntry,
		Value:           decimal.RequireFromString(value),
	}
}

func closedEvent(tenant uuid.UUID) *finance.CashDayClosedEvent {
	return &finance.CashDayClosedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(finance.EventCashDayClosed, finance.AggregateCashClosing, uuid.New(), tenant, uuid.New()),
		Accounts:         2,
		TotalDiscrepancy: decimal.RequireFromString("-2.00"),
	}
}
