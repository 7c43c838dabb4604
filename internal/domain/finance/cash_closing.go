package finance

import (
	"fmt"
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashClosingEntry compares one account's physical count to the journal
type CashClosingEntry struct {
	ID              uuid.UUID
	BankAccountID   uuid.UUID
	BankAccountName string
	InformedBalance decimal.Decimal
	ComputedBalance decimal.Decimal
	Discrepancy     decimal.Decimal
}

// CashClosing freezes a calendar day. It is an audit artifact and never
// adjusts account balances.
type CashClosing struct {
	shared.TenantAggregateRoot
	ClosingDate      time.Time
	Entries          []CashClosingEntry
	TotalDiscrepancy decimal.Decimal
	Notes            string
}

// NewCashClosing reconciles informed balances against computed ones. Every
// active account must be informed; informed ids outside that set are rejected.
func NewCashClosing(
	tenantID uuid.UUID,
	date time.Time,
	activeAccounts []BankAccount,
	informed map[uuid.UUID]decimal.Decimal,
	computed map[uuid.UUID]decimal.Decimal,
	notes string,
	actorID uuid.UUID,
) (*CashClosing, error) {
	if date.IsZero() {
		return nil, shared.NewValidationError("closing_date", "Closing date is required")
	}
	if len(activeAccounts) == 0 {
		return nil, shared.NewDomainError(CodeIncompleteClosing, "There are no active bank accounts to close")
	}

	active := make(map[uuid.UUID]bool, len(activeAccounts))
	var missing *shared.DomainError
	for _, a := range activeAccounts {
		active[a.ID] = true
		if _, ok := informed[a.ID]; !ok {
			if missing == nil {
				missing = shared.NewDomainError(CodeIncompleteClosing, "Informed balance is missing for one or more active accounts")
			}
			missing = missing.WithDetail(fmt.Sprintf("informed_balances.%s", a.ID), "Missing informed balance for "+a.Name)
		}
	}
	if missing != nil {
		return nil, missing
	}
	for id, v := range informed {
		if !active[id] {
			return nil, shared.NewValidationError(fmt.Sprintf("informed_balances.%s", id), "Account is unknown or inactive")
		}
		if _, err := valueobject.NewMoney(v); err != nil {
			return nil, shared.NewValidationError(fmt.Sprintf("informed_balances.%s", id), err.Error())
		}
	}

	c := &CashClosing{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ClosingDate:         DateOf(date),
		Notes:               notes,
		TotalDiscrepancy:    decimal.Zero,
	}
	c.SetCreatedBy(actorID)
	for _, a := range activeAccounts {
		exp := computed[a.ID]
		got := informed[a.ID]
		entry := CashClosingEntry{
			ID:              uuid.New(),
			BankAccountID:   a.ID,
			BankAccountName: a.Name,
			InformedBalance: got,
			ComputedBalance: exp,
			Discrepancy:     got.Sub(exp),
		}
		c.Entries = append(c.Entries, entry)
		c.TotalDiscrepancy = c.TotalDiscrepancy.Add(entry.Discrepancy)
	}
	c.AddDomainEvent(NewCashDayClosedEvent(c, actorID))
	return c, nil
}

// HasDiscrepancy reports whether any account did not match
func (c *CashClosing) HasDiscrepancy() bool {
	for _, e := range c.Entries {
		if !e.Discrepancy.IsZero() {
			return true
		}
	}
	return false
}

// OpenDays returns the distinct transaction dates not covered by a closing, ascending
func OpenDays(transactionDates, closedDates []time.Time) []time.Time {
	closed := make(map[time.Time]bool, len(closedDates))
	for _, d := range closedDates {
		closed[DateOf(d)] = true
	}
	seen := make(map[time.Time]bool)
	days := make([]time.Time, 0)
	for _, d := range transactionDates {
		day := DateOf(d)
		if closed[day] || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
