package finance

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invariant violation codes. Each rejects the whole operation.
const (
	CodeValueExceedsRemaining        = "VALUE_EXCEEDS_REMAINING"
	CodeInsufficientCreditBalance    = "INSUFFICIENT_CREDIT_BALANCE"
	CodeExceedsNominalValue          = "EXCEEDS_NOMINAL_VALUE"
	CodeCannotCancelPartiallySettled = "CANNOT_CANCEL_PARTIALLY_SETTLED"
	CodeIncompleteClosing            = "INCOMPLETE_CLOSING"
	CodeAccountInactive              = "ACCOUNT_INACTIVE"
	CodeDayClosed                    = "DAY_CLOSED"
	CodeAlreadyClosed                = "ALREADY_CLOSED"
	CodeLinkedToSettlement           = "LINKED_TO_SETTLEMENT"
	CodeNotPayable                   = "OBLIGATION_NOT_PAYABLE"
)

// ErrValueExceedsRemaining reports a payment larger than what is still owed
func ErrValueExceedsRemaining(obligationID uuid.UUID, value, remaining decimal.Decimal) *shared.DomainError {
	return shared.NewDomainErrorf(CodeValueExceedsRemaining,
		"Payment %s exceeds remaining value %s of obligation %s",
		value.StringFixed(2), remaining.StringFixed(2), obligationID)
}

// ErrNotPayable reports a payment against a settled or cancelled obligation
func ErrNotPayable(o *Obligation) *shared.DomainError {
	if o.Status == StatusSettled {
		return shared.NewDomainErrorf(CodeValueExceedsRemaining,
			"Obligation %s is already settled; remaining value is 0.00", o.ID)
	}
	return shared.NewDomainErrorf(CodeNotPayable,
		"Obligation %s in status %s does not accept payments", o.ID, o.Status)
}

// BatchLineError pins a settlement failure to a single line of the batch
type BatchLineError struct {
	Line         int
	ObligationID uuid.UUID
	Err          *shared.DomainError
}

// Error implements error
func (e *BatchLineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err.Message)
}

// Unwrap exposes the underlying domain error to errors.As / errors.Is
func (e *BatchLineError) Unwrap() error {
	return e.Err
}

// DomainError converts the line failure into a domain error with a field detail
func (e *BatchLineError) DomainError() *shared.DomainError {
	return e.Err.WithDetail(fmt.Sprintf("lines[%d]", e.Line-1), e.Err.Message)
}
