package finance

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType is the kind of adjustment applied to a credit line
type MovementType string

const (
	MovementInitial    MovementType = "inicial"
	MovementDeduction  MovementType = "deducao"
	MovementReversal   MovementType = "estorno"
	MovementAdjustment MovementType = "ajuste"
)

// IsValid checks if the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementInitial, MovementDeduction, MovementReversal, MovementAdjustment:
		return true
	}
	return false
}

// Credit is a line-of-credit instrument whose current balance stays
// within [0, NominalValue].
type Credit struct {
	shared.TenantAggregateRoot
	Code           string
	Description    string
	NominalValue   decimal.Decimal
	CurrentBalance decimal.Decimal
	Initialized    bool
}

// NewCredit creates a credit line with no movements yet
func NewCredit(tenantID uuid.UUID, code, description string, nominal decimal.Decimal) (*Credit, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewValidationError("code", "Code cannot be empty")
	}
	if _, err := valueobject.NewMoney(nominal); err != nil {
		return nil, shared.NewValidationError("nominal_value", err.Error())
	}
	if !nominal.IsPositive() {
		return nil, shared.NewValidationError("nominal_value", "Nominal value must be positive")
	}
	return &Credit{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Description:         strings.TrimSpace(description),
		NominalValue:        nominal,
		CurrentBalance:      decimal.Zero,
	}, nil
}

// NextBalance computes the balance a movement would produce, or the
// invariant it would break. It never mutates the credit.
func (c *Credit) NextBalance(t MovementType, value decimal.Decimal) (decimal.Decimal, error) {
	if !t.IsValid() {
		return decimal.Zero, shared.NewValidationError("movement_type", "Movement type must be inicial, deducao, estorno or ajuste")
	}
	if _, err := valueobject.NewMoney(value); err != nil {
		return decimal.Zero, shared.NewValidationError("value", err.Error())
	}
	if value.IsNegative() {
		return decimal.Zero, shared.NewValidationError("value", "Value cannot be negative")
	}
	if t != MovementAdjustment && value.IsZero() {
		return decimal.Zero, shared.NewValidationError("value", "Value must be positive")
	}

	if t == MovementInitial {
		if c.Initialized {
			return decimal.Zero, shared.NewDomainError(shared.CodeInvalidState, "Initial movement is only valid as the first movement")
		}
		if value.GreaterThan(c.NominalValue) {
			return decimal.Zero, c.exceedsNominal(value)
		}
		return value, nil
	}
	if !c.Initialized {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidState, "Credit has no initial movement yet")
	}

	var next decimal.Decimal
	switch t {
	case MovementDeduction:
		next = c.CurrentBalance.Sub(value)
		if next.IsNegative() {
			return decimal.Zero, shared.NewDomainErrorf(CodeInsufficientCreditBalance,
				"Deduction of %s exceeds current balance %s", value.StringFixed(2), c.CurrentBalance.StringFixed(2))
		}
	case MovementReversal:
		next = c.CurrentBalance.Add(value)
		if next.GreaterThan(c.NominalValue) {
			return decimal.Zero, c.exceedsNominal(next)
		}
	case MovementAdjustment:
		next = value
		if next.GreaterThan(c.NominalValue) {
			return decimal.Zero, c.exceedsNominal(next)
		}
	}
	return next, nil
}

func (c *Credit) exceedsNominal(balance decimal.Decimal) error {
	return shared.NewDomainErrorf(CodeExceedsNominalValue,
		"Resulting balance %s exceeds nominal value %s", balance.StringFixed(2), c.NominalValue.StringFixed(2))
}

// ApplyMovement validates and applies a movement, returning the immutable
// audit row to persist alongside the updated credit.
func (c *Credit) ApplyMovement(t MovementType, value decimal.Decimal, description string, date time.Time, actorID uuid.UUID) (*CreditMovement, error) {
	next, err := c.NextBalance(t, value)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = time.Now()
	}
	m := &CreditMovement{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      c.TenantID,
		CreditID:      c.ID,
		MovementType:  t,
		Value:         value,
		BalanceBefore: c.CurrentBalance,
		BalanceAfter:  next,
		MovementDate:  DateOf(date),
		Description:   strings.TrimSpace(description),
		CreatedBy:     actorID,
	}
	c.CurrentBalance = next
	c.Initialized = true
	c.IncrementVersion()
	c.AddDomainEvent(NewCreditMovementAppliedEvent(c, m))
	return m, nil
}

// CreditMovement is the append-only audit row of one credit adjustment
type CreditMovement struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	CreditID      uuid.UUID
	MovementType  MovementType
	Value         decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	MovementDate  time.Time
	Description   string
	CreatedBy     uuid.UUID
}

// ReplayMovements rebuilds a balance from the audit trail alone
func ReplayMovements(movements []CreditMovement) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		switch m.MovementType {
		case MovementInitial, MovementAdjustment:
			balance = m.Value
		case MovementDeduction:
			balance = balance.Sub(m.Value)
		case MovementReversal:
			balance = balance.Add(m.Value)
		}
	}
	return balance
}
