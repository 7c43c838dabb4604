package finance_test

import (
	"context"
	"testing"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosingService_CloseRecordsDiscrepancy(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	cash := f.account(t, "Cash", "100")
	bank := f.account(t, "Bank", "500")
	yesterday := f.today().AddDate(0, 0, -1)
	f.record(t, cash, finance.TransactionEntry, "20", yesterday)
	f.record(t, cash, finance.TransactionExit, "5", f.today())
	f.record(t, bank, finance.TransactionEntry, "1", f.today().AddDate(0, 0, 1))

	resp, err := f.closing.Close(ctx, f.editor, appfinance.CloseCashRequest{
		Date: yesterday,
		InformedBalances: map[uuid.UUID]decimal.Decimal{
			cash: dec("118"),
			bank: dec("500"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-19", resp.ClosingDate)
	assert.Equal(t, "-2.00", resp.TotalDiscrepancy.String())
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "Bank", resp.Entries[0].BankAccountName)
	assert.True(t, resp.Entries[0].Discrepancy.IsZero())
	assert.Equal(t, "120.00", resp.Entries[1].ComputedBalance.String())
	assert.Equal(t, "-2.00", resp.Entries[1].Discrepancy.String())
	assert.Contains(t, f.events.Types(), finance.EventCashDayClosed)

	// closing never touches stored balances
	assert.True(t, f.balance(t, cash).Equal(dec("115")))

	got, err := f.closing.GetClosing(ctx, f.viewer, yesterday)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
	assert.Len(t, got.Entries, 2)

	_, err = f.closing.Close(ctx, f.editor, appfinance.CloseCashRequest{
		Date:             yesterday,
		InformedBalances: map[uuid.UUID]decimal.Decimal{cash: dec("120"), bank: dec("500")},
	})
	requireCode(t, err, finance.CodeAlreadyClosed)

	days, err := f.closing.OpenDays(ctx, f.viewer)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-20", "2026-01-21"}, days)
}

func TestClosingService_Rejections(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.closing.Close(ctx, f.editor, appfinance.CloseCashRequest{Date: f.today()})
	requireCode(t, err, finance.CodeIncompleteClosing)

	cash := f.account(t, "Cash", "0")
	bank := f.account(t, "Bank", "0")

	_, err = f.closing.Close(ctx, f.editor, appfinance.CloseCashRequest{
		Date:             f.today(),
		InformedBalances: map[uuid.UUID]decimal.Decimal{cash: decimal.Zero},
	})
	requireCode(t, err, finance.CodeIncompleteClosing)

	_, err = f.closing.Close(ctx, f.editor, appfinance.CloseCashRequest{
		Date:             f.today(),
		InformedBalances: map[uuid.UUID]decimal.Decimal{cash: decimal.Zero, bank: decimal.Zero, uuid.New(): decimal.Zero},
	})
	requireCode(t, err, shared.CodeValidation)

	_, err = f.closing.Close(ctx, f.viewer, appfinance.CloseCashRequest{Date: f.today()})
	requireCode(t, err, shared.CodeForbidden)

	_, err = f.closing.GetClosing(ctx, f.viewer, f.today())
	requireCode(t, err, shared.CodeNotFound)
}

func TestClosingService_ListClosings(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	cash := f.account(t, "Cash", "0")

	for _, offset := range []int{-3, -2, -1} {
		_, err := f.closing.Close(ctx, f.editor, appfinance.CloseCashRequest{
			Date:             f.today().AddDate(0, 0, offset),
			InformedBalances: map[uuid.UUID]decimal.Decimal{cash: decimal.Zero},
		})
		require.NoError(t, err)
	}

	from := f.today().AddDate(0, 0, -2)
	list, err := f.closing.ListClosings(ctx, f.viewer, &from, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-01-19", list[0].ClosingDate)
	assert.Equal(t, "2026-01-18", list[1].ClosingDate)
}
