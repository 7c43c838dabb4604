package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventObligationCreated       = "ObligationCreated"
	EventObligationCancelled     = "ObligationCancelled"
	EventSettlementCompleted     = "SettlementCompleted"
	EventCashTransactionRecorded = "CashTransactionRecorded"
	EventCashTransactionDeleted  = "CashTransactionDeleted"
	EventCreditMovementApplied   = "CreditMovementApplied"
	EventCashDayClosed           = "CashDayClosed"
)

// Aggregate types
const (
	AggregateObligation      = "Obligation"
	AggregateBankAccount     = "BankAccount"
	AggregateCashTransaction = "CashTransaction"
	AggregateCredit          = "Credit"
	AggregateCashClosing     = "CashClosing"
)

// ObligationCreatedEvent is raised when a payable or receivable is registered
type ObligationCreatedEvent struct {
	shared.BaseDomainEvent
	Kind         ObligationKind  `json:"kind"`
	Code         string          `json:"code"`
	NominalValue decimal.Decimal `json:"nominal_value"`
	DueDate      time.Time       `json:"due_date"`
}

// NewObligationCreatedEvent creates an ObligationCreatedEvent
func NewObligationCreatedEvent(o *Obligation) *ObligationCreatedEvent {
	var actor uuid.UUID
	if o.CreatedBy != nil {
		actor = *o.CreatedBy
	}
	return &ObligationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventObligationCreated, AggregateObligation, o.ID, o.TenantID, actor),
		Kind:            o.Kind,
		Code:            o.Code,
		NominalValue:    o.NominalValue,
		DueDate:         o.DueDate,
	}
}

// ObligationCancelledEvent is raised when an obligation is cancelled
type ObligationCancelledEvent struct {
	shared.BaseDomainEvent
	Kind   ObligationKind `json:"kind"`
	Code   string         `json:"code"`
	Reason string         `json:"reason"`
}

// NewObligationCancelledEvent creates an ObligationCancelledEvent
func NewObligationCancelledEvent(o *Obligation, actorID uuid.UUID) *ObligationCancelledEvent {
	return &ObligationCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventObligationCancelled, AggregateObligation, o.ID, o.TenantID, actorID),
		Kind:            o.Kind,
		Code:            o.Code,
		Reason:          o.CancelReason,
	}
}

// SettlementCompletedEvent is raised once per committed settlement batch
type SettlementCompletedEvent struct {
	shared.BaseDomainEvent
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	PaymentDate   time.Time       `json:"payment_date"`
	Lines         int             `json:"lines"`
	NetDelta      decimal.Decimal `json:"net_delta"`
	Obligations   []uuid.UUID     `json:"obligations"`
	Settled       []uuid.UUID     `json:"settled"`
}

// NewSettlementCompletedEvent creates a SettlementCompletedEvent
func NewSettlementCompletedEvent(tenantID, actorID uuid.UUID, account *BankAccount, sc SettlementContext, out *SettlementOutcome) *SettlementCompletedEvent {
	e := &SettlementCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventSettlementCompleted, AggregateBankAccount, account.ID, tenantID, actorID),
		BankAccountID:   account.ID,
		PaymentDate:     DateOf(sc.PaymentDate),
		Lines:           len(out.Transactions),
		NetDelta:        out.NetDelta,
	}
	for _, o := range out.Obligations {
		e.Obligations = append(e.Obligations, o.ID)
		if o.Status == StatusSettled {
			e.Settled = append(e.Settled, o.ID)
		}
	}
	return e
}

// CashTransactionRecordedEvent is raised for manual journal entries
type CashTransactionRecordedEvent struct {
	shared.BaseDomainEvent
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Type          TransactionType `json:"type"`
	Value         decimal.Decimal `json:"value"`
	Date          time.Time       `json:"transaction_date"`
}

// NewCashTransactionRecordedEvent creates a CashTransactionRecordedEvent
func NewCashTransactionRecordedEvent(tx *CashTransaction, actorID uuid.UUID) *CashTransactionRecordedEvent {
	return &CashTransactionRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventCashTransactionRecorded, AggregateCashTransaction, tx.ID, tx.TenantID, actorID),
		BankAccountID:   tx.BankAccountID,
		Type:            tx.Type,
		Value:           tx.Value,
		Date:            tx.TransactionDate,
	}
}

// CashTransactionDeletedEvent is raised after a deletion and the balance recompute
type CashTransactionDeletedEvent struct {
	shared.BaseDomainEvent
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Type          TransactionType `json:"type"`
	Value         decimal.Decimal `json:"value"`
	Date          time.Time       `json:"transaction_date"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// NewCashTransactionDeletedEvent creates a CashTransactionDeletedEvent
func NewCashTransactionDeletedEvent(tx *CashTransaction, newBalance decimal.Decimal, actorID uuid.UUID) *CashTransactionDeletedEvent {
	return &CashTransactionDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventCashTransactionDeleted, AggregateCashTransaction, tx.ID, tx.TenantID, actorID),
		BankAccountID:   tx.BankAccountID,
		Type:            tx.Type,
		Value:           tx.Value,
		Date:            tx.TransactionDate,
		NewBalance:      newBalance,
	}
}

// CreditMovementAppliedEvent is raised for every credit movement
type CreditMovementAppliedEvent struct {
	shared.BaseDomainEvent
	MovementID   uuid.UUID       `json:"movement_id"`
	MovementType MovementType    `json:"movement_type"`
	Value        decimal.Decimal `json:"value"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// NewCreditMovementAppliedEvent creates a CreditMovementAppliedEvent
func NewCreditMovementAppliedEvent(c *Credit, m *CreditMovement) *CreditMovementAppliedEvent {
	return &CreditMovementAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventCreditMovementApplied, AggregateCredit, c.ID, c.TenantID, m.CreatedBy),
		MovementID:      m.ID,
		MovementType:    m.MovementType,
		Value:           m.Value,
		BalanceAfter:    m.BalanceAfter,
	}
}

// CashDayClosedEvent is raised when a day is closed
type CashDayClosedEvent struct {
	shared.BaseDomainEvent
	ClosingDate      time.Time       `json:"closing_date"`
	Accounts         int             `json:"accounts"`
	TotalDiscrepancy decimal.Decimal `json:"total_discrepancy"`
}

// NewCashDayClosedEvent creates a CashDayClosedEvent
func NewCashDayClosedEvent(c *CashClosing, actorID uuid.UUID) *CashDayClosedEvent {
	return &CashDayClosedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventCashDayClosed, AggregateCashClosing, c.ID, c.TenantID, actorID),
		ClosingDate:      c.ClosingDate,
		Accounts:         len(c.Entries),
		TotalDiscrepancy: c.TotalDiscrepancy,
	}
}
