package finance

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ObligationKind distinguishes payables (money we owe) from receivables (money owed to us)
type ObligationKind string

const (
	KindPayable    ObligationKind = "payable"
	KindReceivable ObligationKind = "receivable"
)

// IsValid checks if the kind is known
func (k ObligationKind) IsValid() bool {
	return k == KindPayable || k == KindReceivable
}

// String returns the string representation
func (k ObligationKind) String() string {
	return string(k)
}

// SettlementType is the cash transaction type a settlement of this kind posts:
// paying a payable is an exit, collecting a receivable is an entry.
func (k ObligationKind) SettlementType() TransactionType {
	if k == KindPayable {
		return TransactionExit
	}
	return TransactionEntry
}

// CodePrefix is the prefix of generated obligation codes
func (k ObligationKind) CodePrefix() string {
	if k == KindPayable {
		return "AP"
	}
	return "AR"
}

// Obligation is an account payable or receivable. Both directions share
// the same shape and rules; Kind decides which way cash moves on settlement.
//
// Invariants held after every mutation:
//   - RemainingValue = NominalValue - PaidValue >= 0
//   - Status = DeriveStatus(NominalValue, PaidValue, DueDate, today, cancelled)
type Obligation struct {
	shared.TenantAggregateRoot
	Kind           ObligationKind
	Code           string
	CounterpartyID uuid.UUID
	ContractID     *uuid.UUID
	Description    string
	NominalValue   decimal.Decimal
	PaidValue      decimal.Decimal
	RemainingValue decimal.Decimal
	DueDate        time.Time
	Status         ObligationStatus
	Category       string
	CostCenter     string
	Notes          string
	SettledAt      *time.Time
	CancelledAt    *time.Time
	CancelReason   string
}

// NewObligation creates an obligation with nothing paid
func NewObligation(
	tenantID uuid.UUID,
	kind ObligationKind,
	code string,
	counterpartyID uuid.UUID,
	description string,
	nominal decimal.Decimal,
	dueDate time.Time,
	today time.Time,
) (*Obligation, error) {
	if !kind.IsValid() {
		return nil, shared.NewValidationError("kind", "Kind must be payable or receivable")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("code", "Code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewValidationError("code", "Code cannot exceed 50 characters")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewValidationError("counterparty_id", "Counterparty is required")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, shared.NewValidationError("description", "Description cannot be empty")
	}
	if _, err := valueobject.NewMoney(nominal); err != nil {
		return nil, shared.NewValidationError("nominal_value", err.Error())
	}
	if !nominal.IsPositive() {
		return nil, shared.NewValidationError("nominal_value", "Nominal value must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewValidationError("due_date", "Due date is required")
	}

	o := &Obligation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		Code:                code,
		CounterpartyID:      counterpartyID,
		Description:         description,
		NominalValue:        nominal,
		PaidValue:           decimal.Zero,
		RemainingValue:      nominal,
		DueDate:             DateOf(dueDate),
	}
	o.Status = o.derive(today)
	return o, nil
}

func (o *Obligation) derive(today time.Time) ObligationStatus {
	return DeriveStatus(o.NominalValue, o.PaidValue, o.DueDate, today, o.CancelledAt != nil)
}

// Refresh re-derives remaining value and status against today.
// Returns true if anything changed.
func (o *Obligation) Refresh(today time.Time) bool {
	remaining := o.NominalValue.Sub(o.PaidValue)
	status := o.derive(today)
	changed := !remaining.Equal(o.RemainingValue) || status != o.Status
	o.RemainingValue = remaining
	o.Status = status
	return changed
}

// ValidatePayment checks a payment against the current state without mutating anything
func (o *Obligation) ValidatePayment(value decimal.Decimal) error {
	if !o.Status.AcceptsPayment() {
		return ErrNotPayable(o)
	}
	if _, err := valueobject.NewMoney(value); err != nil {
		return shared.NewValidationError("payment_value", err.Error())
	}
	if !value.IsPositive() {
		return shared.NewValidationError("payment_value", "Payment value must be positive")
	}
	if value.GreaterThan(o.RemainingValue) {
		return ErrValueExceedsRemaining(o.ID, value, o.RemainingValue)
	}
	return nil
}

// ApplyPayment adds a settlement to the obligation. Only the settlement
// engine calls this; there is no way to set the remaining value directly.
func (o *Obligation) ApplyPayment(value decimal.Decimal, today time.Time) error {
	if err := o.ValidatePayment(value); err != nil {
		return err
	}
	o.PaidValue = o.PaidValue.Add(value)
	o.Refresh(today)
	if o.Status == StatusSettled {
		now := time.Now()
		o.SettledAt = &now
	}
	o.IncrementVersion()
	return nil
}

// Cancel marks the obligation as cancelled. Only allowed while nothing has been paid.
func (o *Obligation) Cancel(reason string, actorID uuid.UUID) error {
	if o.Status == StatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidState, "Obligation is already cancelled")
	}
	if o.PaidValue.IsPositive() {
		return shared.NewDomainErrorf(CodeCannotCancelPartiallySettled,
			"Obligation %s has %s already settled and cannot be cancelled", o.Code, o.PaidValue.StringFixed(2))
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = strings.TrimSpace(reason)
	o.Status = StatusCancelled
	o.IncrementVersion()
	o.AddDomainEvent(NewObligationCancelledEvent(o, actorID))
	return nil
}

// UpdateDetails changes the descriptive fields and due date, then re-derives status
func (o *Obligation) UpdateDetails(description string, dueDate time.Time, category, costCenter, notes string, today time.Time) error {
	if o.Status.IsTerminal() {
		return shared.NewDomainErrorf(shared.CodeInvalidState, "Cannot edit an obligation in status %s", o.Status)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return shared.NewValidationError("description", "Description cannot be empty")
	}
	if dueDate.IsZero() {
		return shared.NewValidationError("due_date", "Due date is required")
	}
	o.Description = description
	o.DueDate = DateOf(dueDate)
	o.Category = strings.TrimSpace(category)
	o.CostCenter = strings.TrimSpace(costCenter)
	o.Notes = notes
	o.Refresh(today)
	o.IncrementVersion()
	return nil
}

// CorrectStatus applies an administrative status correction. The requested
// status is only accepted if it is what the values imply (or a legal
// cancellation); the record always ends up re-derived.
func (o *Obligation) CorrectStatus(requested ObligationStatus, today time.Time, actorID uuid.UUID) error {
	if !requested.IsValid() {
		return shared.NewValidationError("status", "Unknown status")
	}
	if requested == StatusCancelled {
		return o.Cancel("administrative correction", actorID)
	}
	if o.Status == StatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidState, "Cancelled obligations cannot be reopened")
	}
	derived := o.derive(today)
	if requested != derived {
		return shared.NewDomainErrorf(shared.CodeInvalidState,
			"Status %s is inconsistent with paid %s of %s due %s; derived status is %s",
			requested, o.PaidValue.StringFixed(2), o.NominalValue.StringFixed(2), FormatDate(o.DueDate), derived)
	}
	o.Refresh(today)
	o.IncrementVersion()
	return nil
}

// ReclassifyOverdue flips open or partially paid obligations past their due
// date to overdue. Settled and cancelled records are never touched.
func (o *Obligation) ReclassifyOverdue(today time.Time) bool {
	if o.Status != StatusOpen && o.Status != StatusPartiallyPaid {
		return false
	}
	if !o.IsOverdue(today) {
		return false
	}
	o.Status = StatusOverdue
	o.IncrementVersion()
	return true
}

// IsOverdue reports whether anything is left to pay past the due date
func (o *Obligation) IsOverdue(today time.Time) bool {
	if o.Status == StatusCancelled {
		return false
	}
	return o.NominalValue.Sub(o.PaidValue).IsPositive() && o.DueDate.Before(DateOf(today))
}

// DaysOverdue returns the number of whole days past the due date, 0 if not overdue
func (o *Obligation) DaysOverdue(today time.Time) int {
	if !o.IsOverdue(today) {
		return 0
	}
	return int(DateOf(today).Sub(o.DueDate).Hours() / 24)
}

// PaidPercentage returns paid/nominal as a percentage with two decimals
func (o *Obligation) PaidPercentage() decimal.Decimal {
	if o.NominalValue.IsZero() {
		return decimal.Zero
	}
	return o.PaidValue.Div(o.NominalValue).Mul(decimal.NewFromInt(100)).Round(2)
}
