package finance

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxBatchLines bounds a single settlement call
const MaxBatchLines = 200

// ObligationRef identifies an obligation across the two registries
type ObligationRef struct {
	Kind ObligationKind
	ID   uuid.UUID
}

// SettlementLine is one payment inside a batch
type SettlementLine struct {
	Kind         ObligationKind
	ObligationID uuid.UUID
	Value        decimal.Decimal
}

// Ref returns the obligation reference of the line
func (l SettlementLine) Ref() ObligationRef {
	return ObligationRef{Kind: l.Kind, ID: l.ObligationID}
}

// SettlementContext holds what all lines of a batch share
type SettlementContext struct {
	PaymentDate   time.Time
	PaymentMethod string
	BankAccountID uuid.UUID
	Notes         string
}

// Validate checks the batch-wide fields
func (c SettlementContext) Validate() error {
	if c.PaymentDate.IsZero() {
		return shared.NewValidationError("payment_date", "Payment date is required")
	}
	if strings.TrimSpace(c.PaymentMethod) == "" {
		return shared.NewValidationError("payment_method", "Payment method is required")
	}
	if c.BankAccountID == uuid.Nil {
		return shared.NewValidationError("bank_account_id", "Bank account is required")
	}
	return nil
}

// ValidateLines checks the shape of every line before anything is loaded
func ValidateLines(lines []SettlementLine) error {
	if len(lines) == 0 {
		return shared.NewValidationError("lines", "At least one payment is required")
	}
	if len(lines) > MaxBatchLines {
		return shared.NewValidationError("lines", "Too many payments in one batch")
	}
	for i, l := range lines {
		var err *shared.DomainError
		switch {
		case !l.Kind.IsValid():
			err = shared.NewDomainError(shared.CodeValidation, "Obligation kind must be payable or receivable")
		case l.ObligationID == uuid.Nil:
			err = shared.NewDomainError(shared.CodeValidation, "Obligation id is required")
		case !l.Value.IsPositive():
			err = shared.NewDomainError(shared.CodeValidation, "Payment value must be positive")
		default:
			if _, mErr := valueobject.NewMoney(l.Value); mErr != nil {
				err = shared.NewDomainError(shared.CodeValidation, mErr.Error())
			}
		}
		if err != nil {
			return &BatchLineError{Line: i + 1, ObligationID: l.ObligationID, Err: err}
		}
	}
	return nil
}

// ValidateBatch checks every line against the loaded state without mutating
// anything. Lines targeting the same obligation are checked cumulatively.
func ValidateBatch(lines []SettlementLine, obligations map[ObligationRef]*Obligation, account *BankAccount) error {
	if err := ValidateLines(lines); err != nil {
		return err
	}
	if account == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Bank account not found")
	}
	if err := account.EnsureActive(); err != nil {
		return err
	}

	pending := make(map[ObligationRef]decimal.Decimal, len(lines))
	for i, l := range lines {
		o, ok := obligations[l.Ref()]
		if !ok || o == nil {
			return &BatchLineError{Line: i + 1, ObligationID: l.ObligationID,
				Err: shared.NewDomainErrorf(shared.CodeNotFound, "%s %s not found", l.Kind, l.ObligationID)}
		}
		if !o.Status.AcceptsPayment() {
			return &BatchLineError{Line: i + 1, ObligationID: l.ObligationID, Err: ErrNotPayable(o)}
		}
		total := pending[l.Ref()].Add(l.Value)
		if total.GreaterThan(o.RemainingValue) {
			return &BatchLineError{Line: i + 1, ObligationID: l.ObligationID,
				Err: ErrValueExceedsRemaining(o.ID, l.Value, o.RemainingValue.Sub(pending[l.Ref()]))}
		}
		pending[l.Ref()] = total
	}
	return nil
}

// SettlementOutcome is what ApplyBatch changed, ready to be persisted
type SettlementOutcome struct {
	Transactions []*CashTransaction
	Obligations  []*Obligation
	NetDelta     decimal.Decimal
}

// ApplyBatch validates all lines, then applies all of them: obligations are
// paid, one journal entry per line is built, and the account balance moves
// by the net amount. Nothing is mutated if validation fails.
func ApplyBatch(lines []SettlementLine, obligations map[ObligationRef]*Obligation, account *BankAccount, sc SettlementContext, today time.Time) (*SettlementOutcome, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateBatch(lines, obligations, account); err != nil {
		return nil, err
	}

	// Lines targeting the same obligation are paid as one sum so each
	// aggregate is mutated, and versioned, exactly once.
	out := &SettlementOutcome{NetDelta: decimal.Zero}
	sums := make(map[ObligationRef]decimal.Decimal, len(lines))
	for _, l := range lines {
		if _, ok := sums[l.Ref()]; !ok {
			out.Obligations = append(out.Obligations, obligations[l.Ref()])
		}
		sums[l.Ref()] = sums[l.Ref()].Add(l.Value)
	}
	for _, o := range out.Obligations {
		if err := o.ApplyPayment(sums[ObligationRef{Kind: o.Kind, ID: o.ID}], today); err != nil {
			return nil, err
		}
	}
	for _, l := range lines {
		tx, err := NewSettlementTransaction(obligations[l.Ref()], account.ID, sc.PaymentDate, l.Value, sc.PaymentMethod, sc.Notes)
		if err != nil {
			return nil, err
		}
		out.Transactions = append(out.Transactions, tx)
		out.NetDelta = out.NetDelta.Add(tx.SignedValue())
	}
	account.ApplyDelta(out.NetDelta)
	return out, nil
}
