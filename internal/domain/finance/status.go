package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObligationStatus is the lifecycle classification of a payable or receivable.
// Except for cancellation it is never set directly: it is a function of
// (paid, nominal, due date, today), see DeriveStatus.
type ObligationStatus string

const (
	StatusOpen          ObligationStatus = "em_aberto"
	StatusPartiallyPaid ObligationStatus = "parcialmente_pago"
	StatusOverdue       ObligationStatus = "vencido"
	StatusSettled       ObligationStatus = "quitado"
	StatusCancelled     ObligationStatus = "cancelado"
)

// AllStatuses lists every status in display order
var AllStatuses = []ObligationStatus{StatusOpen, StatusPartiallyPaid, StatusOverdue, StatusSettled, StatusCancelled}

// IsValid checks if the status is a known value
func (s ObligationStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusPartiallyPaid, StatusOverdue, StatusSettled, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s ObligationStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses that can never change again
func (s ObligationStatus) IsTerminal() bool {
	return s == StatusSettled || s == StatusCancelled
}

// AcceptsPayment returns true if settlements may be applied
func (s ObligationStatus) AcceptsPayment() bool {
	return s == StatusOpen || s == StatusPartiallyPaid || s == StatusOverdue
}

// DeriveStatus computes the status implied by the values. Overdue wins over
// partially paid: an obligation past its due date with anything left to pay
// is vencido whether or not it has received payments.
func DeriveStatus(nominal, paid decimal.Decimal, dueDate, today time.Time, cancelled bool) ObligationStatus {
	remaining := nominal.Sub(paid)
	switch {
	case cancelled:
		return StatusCancelled
	case !remaining.IsPositive():
		return StatusSettled
	case DateOf(dueDate).Before(DateOf(today)):
		return StatusOverdue
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusOpen
	}
}
