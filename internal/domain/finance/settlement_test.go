package finance

import (
	"errors"
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchFixture struct {
	account     *BankAccount
	obligations map[ObligationRef]*Obligation
	list        []*Obligation
	ctx         SettlementContext
}

func newBatchFixture(t *testing.T, nominals ...string) *batchFixture {
	t.Helper()
	tenant := uuid.New()
	account, err := NewBankAccount(tenant, "Main", AccountTypeBank, "BK1", dec("5000.00"))
	require.NoError(t, err)

	f := &batchFixture{
		account:     account,
		obligations: make(map[ObligationRef]*Obligation),
		ctx: SettlementContext{
			PaymentDate:   testToday,
			PaymentMethod: "pix",
			BankAccountID: account.ID,
		},
	}
	for i, n := range nominals {
		kind := KindPayable
		if i%2 == 1 {
			kind = KindReceivable
		}
		o, err := NewObligation(tenant, kind, "OB"+n, uuid.New(), "obligation "+n, dec(n), nextWeek, testToday)
		require.NoError(t, err)
		f.obligations[ObligationRef{Kind: kind, ID: o.ID}] = o
		f.list = append(f.list, o)
	}
	return f
}

func (f *batchFixture) line(i int, value string) SettlementLine {
	return SettlementLine{Kind: f.list[i].Kind, ObligationID: f.list[i].ID, Value: dec(value)}
}

func TestApplyBatch_AllLinesApplied(t *testing.T) {
	f := newBatchFixture(t, "100.00", "300.00", "50.00")
	lines := []SettlementLine{f.line(0, "100.00"), f.line(1, "120.00"), f.line(2, "20.00")}

	out, err := ApplyBatch(lines, f.obligations, f.account, f.ctx, testToday)
	require.NoError(t, err)
	require.Len(t, out.Transactions, 3)

	assert.Equal(t, StatusSettled, f.list[0].Status)
	assert.Equal(t, StatusPartiallyPaid, f.list[1].Status)
	assert.Equal(t, TransactionExit, out.Transactions[0].Type)
	assert.Equal(t, TransactionEntry, out.Transactions[1].Type)
	assert.Equal(t, f.list[1].ID, *out.Transactions[1].ObligationID)

	// -100 + 120 - 20
	assert.Equal(t, "0.00", out.NetDelta.StringFixed(2))
	assert.Equal(t, "5000.00", f.account.Balance.StringFixed(2))
}

func TestApplyBatch_InvalidLineLeavesEverythingUntouched(t *testing.T) {
	f := newBatchFixture(t, "100.00", "200.00", "300.00")
	lines := []SettlementLine{f.line(0, "50.00"), f.line(1, "200.01"), f.line(2, "10.00")}

	out, err := ApplyBatch(lines, f.obligations, f.account, f.ctx, testToday)
	assert.Nil(t, out)

	var lineErr *BatchLineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.Equal(t, f.list[1].ID, lineErr.ObligationID)
	assert.True(t, hasCode(err, CodeValueExceedsRemaining))
	assert.Equal(t, "lines[1]", lineErr.DomainError().Details[0].Field)

	for _, o := range f.list {
		assert.True(t, o.PaidValue.IsZero())
		assert.Equal(t, StatusOpen, o.Status)
		assert.Equal(t, 1, o.Version)
	}
	assert.Equal(t, "5000.00", f.account.Balance.StringFixed(2))
}

func TestApplyBatch_SameObligationTwiceIsCumulative(t *testing.T) {
	f := newBatchFixture(t, "100.00")

	_, err := ApplyBatch([]SettlementLine{f.line(0, "60.00"), f.line(0, "40.01")}, f.obligations, f.account, f.ctx, testToday)
	assert.True(t, hasCode(err, CodeValueExceedsRemaining))
	assert.True(t, f.list[0].PaidValue.IsZero())

	out, err := ApplyBatch([]SettlementLine{f.line(0, "60.00"), f.line(0, "40.00")}, f.obligations, f.account, f.ctx, testToday)
	require.NoError(t, err)
	assert.Len(t, out.Transactions, 2)
	assert.Len(t, out.Obligations, 1)
	assert.Equal(t, StatusSettled, f.list[0].Status)
	assert.Equal(t, 2, f.list[0].Version, "aggregate versioned once per batch")
	assert.Equal(t, "4900.00", f.account.Balance.StringFixed(2))
}

func TestApplyBatch_Rejections(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		f := newBatchFixture(t, "10.00")
		_, err := ApplyBatch(nil, f.obligations, f.account, f.ctx, testToday)
		assert.True(t, hasCode(err, shared.CodeValidation))
	})

	t.Run("unknown obligation", func(t *testing.T) {
		f := newBatchFixture(t, "10.00")
		lines := []SettlementLine{{Kind: KindPayable, ObligationID: uuid.New(), Value: dec("1")}}
		_, err := ApplyBatch(lines, f.obligations, f.account, f.ctx, testToday)
		assert.True(t, hasCode(err, shared.CodeNotFound))
	})

	t.Run("inactive account", func(t *testing.T) {
		f := newBatchFixture(t, "10.00")
		f.account.Deactivate()
		_, err := ApplyBatch([]SettlementLine{f.line(0, "1")}, f.obligations, f.account, f.ctx, testToday)
		assert.True(t, hasCode(err, CodeAccountInactive))
	})

	t.Run("settled obligation", func(t *testing.T) {
		f := newBatchFixture(t, "10.00")
		require.NoError(t, f.list[0].ApplyPayment(dec("10"), testToday))
		_, err := ApplyBatch([]SettlementLine{f.line(0, "0.01")}, f.obligations, f.account, f.ctx, testToday)
		assert.True(t, hasCode(err, CodeValueExceedsRemaining))
	})

	t.Run("missing payment method", func(t *testing.T) {
		f := newBatchFixture(t, "10.00")
		f.ctx.PaymentMethod = ""
		_, err := ApplyBatch([]SettlementLine{f.line(0, "1")}, f.obligations, f.account, f.ctx, testToday)
		assert.True(t, hasCode(err, shared.CodeValidation))
	})

	t.Run("sub cent value", func(t *testing.T) {
		f := newBatchFixture(t, "10.00")
		_, err := ApplyBatch([]SettlementLine{{Kind: f.list[0].Kind, ObligationID: f.list[0].ID, Value: decimal.RequireFromString("0.005")}},
			f.obligations, f.account, f.ctx, testToday)
		var lineErr *BatchLineError
		require.True(t, errors.As(err, &lineErr))
		assert.Equal(t, 1, lineErr.Line)
	})
}
