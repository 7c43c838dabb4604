package finance

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t (in t's location) as midnight UTC.
// All business dates are stored in this normalized form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalized date
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, shared.NewValidationError(field, "Date must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

// FormatDate renders a normalized date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Clock yields the current time; services inject it so "today" is testable
type Clock func() time.Time

// Today returns the calendar date of now in loc
func (c Clock) Today(loc *time.Location) time.Time {
	now := time.Now
	if c != nil {
		now = c
	}
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now().In(loc))
}
