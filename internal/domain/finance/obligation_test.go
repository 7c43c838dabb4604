package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testToday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	nextWeek  = testToday.AddDate(0, 0, 7)
	lastWeek  = testToday.AddDate(0, 0, -7)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestObligation(t *testing.T, kind ObligationKind, nominal string, due time.Time) *Obligation {
	t.Helper()
	o, err := NewObligation(uuid.New(), kind, "AP-TEST-1", uuid.New(), "Rent March", dec(nominal), due, testToday)
	require.NoError(t, err)
	return o
}

func hasCode(err error, code string) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && de.Code == code
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		nominal   string
		paid      string
		due       time.Time
		cancelled bool
		want      ObligationStatus
	}{
		{"nothing paid, not due", "1000", "0", nextWeek, false, StatusOpen},
		{"due today is not overdue", "1000", "0", testToday, false, StatusOpen},
		{"partially paid", "1000", "400", nextWeek, false, StatusPartiallyPaid},
		{"fully paid", "1000", "1000", nextWeek, false, StatusSettled},
		{"fully paid past due", "1000", "1000", lastWeek, false, StatusSettled},
		{"past due nothing paid", "1000", "0", lastWeek, false, StatusOverdue},
		{"past due partially paid stays overdue", "1000", "400", lastWeek, false, StatusOverdue},
		{"cancelled wins", "1000", "0", lastWeek, true, StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(dec(tt.nominal), dec(tt.paid), tt.due, testToday, tt.cancelled)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewObligation_Validation(t *testing.T) {
	tenant, party := uuid.New(), uuid.New()
	tests := []struct {
		name    string
		kind    ObligationKind
		code    string
		party   uuid.UUID
		desc    string
		nominal string
		due     time.Time
	}{
		{"bad kind", "loan", "C1", party, "d", "10", nextWeek},
		{"empty code", KindPayable, " ", party, "d", "10", nextWeek},
		{"no counterparty", KindPayable, "C1", uuid.Nil, "d", "10", nextWeek},
		{"empty description", KindPayable, "C1", party, "", "10", nextWeek},
		{"zero nominal", KindPayable, "C1", party, "d", "0", nextWeek},
		{"negative nominal", KindPayable, "C1", party, "d", "-5", nextWeek},
		{"sub cent nominal", KindPayable, "C1", party, "d", "10.001", nextWeek},
		{"no due date", KindPayable, "C1", party, "d", "10", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObligation(tenant, tt.kind, tt.code, tt.party, tt.desc, dec(tt.nominal), tt.due, testToday)
			assert.True(t, hasCode(err, shared.CodeValidation), "got %v", err)
		})
	}
}

func TestNewObligation_BackDatedIsBornOverdue(t *testing.T) {
	o := newTestObligation(t, KindReceivable, "250.00", lastWeek)
	assert.Equal(t, StatusOverdue, o.Status)
	assert.True(t, o.PaidValue.IsZero())
	assert.True(t, o.RemainingValue.Equal(dec("250")))
}

func TestObligation_SettlementScenario(t *testing.T) {
	o := newTestObligation(t, KindPayable, "1000.00", nextWeek)

	require.NoError(t, o.ApplyPayment(dec("400.00"), testToday))
	assert.Equal(t, "600.00", o.RemainingValue.StringFixed(2))
	assert.Equal(t, StatusPartiallyPaid, o.Status)

	require.NoError(t, o.ApplyPayment(dec("600.00"), testToday))
	assert.Equal(t, "0.00", o.RemainingValue.StringFixed(2))
	assert.Equal(t, StatusSettled, o.Status)
	assert.NotNil(t, o.SettledAt)

	err := o.ApplyPayment(dec("0.01"), testToday)
	assert.True(t, hasCode(err, CodeValueExceedsRemaining), "got %v", err)
	assert.Equal(t, "1000.00", o.PaidValue.StringFixed(2))
}

func TestObligation_Conservation(t *testing.T) {
	o := newTestObligation(t, KindReceivable, "999.99", nextWeek)
	payments := []string{"0.01", "100.00", "250.50", "33.33", "0.15"}
	sum := decimal.Zero
	for _, p := range payments {
		require.NoError(t, o.ApplyPayment(dec(p), testToday))
		sum = sum.Add(dec(p))
		assert.True(t, o.PaidValue.Equal(sum))
		assert.True(t, o.PaidValue.Add(o.RemainingValue).Equal(o.NominalValue))
	}
}

func TestObligation_RejectsOverpaymentWithoutChange(t *testing.T) {
	o := newTestObligation(t, KindPayable, "100.00", nextWeek)
	version := o.Version

	err := o.ApplyPayment(dec("100.01"), testToday)
	assert.True(t, hasCode(err, CodeValueExceedsRemaining))
	assert.True(t, o.PaidValue.IsZero())
	assert.Equal(t, StatusOpen, o.Status)
	assert.Equal(t, version, o.Version)

	assert.True(t, hasCode(o.ApplyPayment(dec("0"), testToday), shared.CodeValidation))
	assert.True(t, hasCode(o.ApplyPayment(dec("-1"), testToday), shared.CodeValidation))
}

func TestObligation_PartialPaymentOnOverdueStaysOverdue(t *testing.T) {
	o := newTestObligation(t, KindPayable, "500.00", lastWeek)
	require.NoError(t, o.ApplyPayment(dec("200.00"), testToday))
	assert.Equal(t, StatusOverdue, o.Status)
	require.NoError(t, o.ApplyPayment(dec("300.00"), testToday))
	assert.Equal(t, StatusSettled, o.Status)
}

func TestObligation_Cancel(t *testing.T) {
	t.Run("unpaid can be cancelled", func(t *testing.T) {
		o := newTestObligation(t, KindPayable, "100.00", nextWeek)
		require.NoError(t, o.Cancel("duplicate", uuid.New()))
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Len(t, o.GetDomainEvents(), 1)
		assert.True(t, hasCode(o.ApplyPayment(dec("1"), testToday), CodeNotPayable))
	})

	t.Run("partially paid cannot be cancelled", func(t *testing.T) {
		o := newTestObligation(t, KindPayable, "100.00", nextWeek)
		require.NoError(t, o.ApplyPayment(dec("10"), testToday))
		err := o.Cancel("oops", uuid.New())
		assert.True(t, hasCode(err, CodeCannotCancelPartiallySettled))
		assert.Equal(t, StatusPartiallyPaid, o.Status)
	})

	t.Run("cancel twice", func(t *testing.T) {
		o := newTestObligation(t, KindPayable, "100.00", nextWeek)
		require.NoError(t, o.Cancel("", uuid.New()))
		assert.True(t, hasCode(o.Cancel("", uuid.New()), shared.CodeInvalidState))
	})
}

func TestObligation_CorrectStatus(t *testing.T) {
	o := newTestObligation(t, KindPayable, "100.00", nextWeek)
	require.NoError(t, o.ApplyPayment(dec("40"), testToday))

	err := o.CorrectStatus(StatusSettled, testToday, uuid.New())
	assert.True(t, hasCode(err, shared.CodeInvalidState))
	assert.Equal(t, StatusPartiallyPaid, o.Status)

	// stale stored status is repaired when the requested value matches the derivation
	o.Status = StatusOpen
	require.NoError(t, o.CorrectStatus(StatusPartiallyPaid, testToday, uuid.New()))
	assert.Equal(t, StatusPartiallyPaid, o.Status)

	assert.True(t, hasCode(o.CorrectStatus(StatusCancelled, testToday, uuid.New()), CodeCannotCancelPartiallySettled))
	assert.True(t, hasCode(o.CorrectStatus("bogus", testToday, uuid.New()), shared.CodeValidation))
}

func TestObligation_ReclassifyOverdue(t *testing.T) {
	o := newTestObligation(t, KindReceivable, "100.00", testToday)
	assert.False(t, o.ReclassifyOverdue(testToday))

	tomorrow := testToday.AddDate(0, 0, 1)
	assert.True(t, o.ReclassifyOverdue(tomorrow))
	assert.Equal(t, StatusOverdue, o.Status)
	assert.False(t, o.ReclassifyOverdue(tomorrow), "second pass is a no-op")
	assert.Equal(t, 1, o.DaysOverdue(tomorrow))

	settled := newTestObligation(t, KindReceivable, "10.00", lastWeek)
	require.NoError(t, settled.ApplyPayment(dec("10"), testToday))
	assert.False(t, settled.ReclassifyOverdue(tomorrow))
	assert.Equal(t, StatusSettled, settled.Status)

	cancelled := newTestObligation(t, KindReceivable, "10.00", nextWeek)
	require.NoError(t, cancelled.Cancel("", uuid.New()))
	assert.False(t, cancelled.ReclassifyOverdue(nextWeek.AddDate(0, 1, 0)))
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestObligation_UpdateDetailsRederivesStatus(t *testing.T) {
	o := newTestObligation(t, KindPayable, "100.00", lastWeek)
	require.Equal(t, StatusOverdue, o.Status)

	require.NoError(t, o.UpdateDetails("Rent March (renegotiated)", nextWeek, "rent", "HQ", "", testToday))
	assert.Equal(t, StatusOpen, o.Status)
	assert.Equal(t, "HQ", o.CostCenter)

	require.NoError(t, o.ApplyPayment(dec("100"), testToday))
	assert.True(t, hasCode(o.UpdateDetails("x", nextWeek, "", "", "", testToday), shared.CodeInvalidState))
}

func TestObligationKind_SettlementType(t *testing.T) {
	assert.Equal(t, TransactionExit, KindPayable.SettlementType())
	assert.Equal(t, TransactionEntry, KindReceivable.SettlementType())
	assert.Equal(t, "AP", KindPayable.CodePrefix())
	assert.Equal(t, "AR", KindReceivable.CodePrefix())
}

func TestObligation_PaidPercentage(t *testing.T) {
	o := newTestObligation(t, KindPayable, "300.00", nextWeek)
	require.NoError(t, o.ApplyPayment(dec("100"), testToday))
	assert.Equal(t, "33.33", o.PaidPercentage().StringFixed(2))
}
