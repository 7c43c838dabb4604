package finance_test

import (
	"context"
	"testing"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObligationService_CreateGeneratesCodes(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	req := appfinance.CreateObligationRequest{
		CounterpartyID: uuid.New(),
		Description:    "Rent",
		NominalValue:   dec("1500"),
		DueDate:        f.today().AddDate(0, 1, 0),
	}
	first, err := f.obligations.Create(ctx, f.editor, finance.KindPayable, req)
	require.NoError(t, err)
	second, err := f.obligations.Create(ctx, f.editor, finance.KindPayable, req)
	require.NoError(t, err)
	receivable, err := f.obligations.Create(ctx, f.editor, finance.KindReceivable, req)
	require.NoError(t, err)

	assert.Equal(t, "AP-20260120-00001", first.Code)
	assert.Equal(t, "AP-20260120-00002", second.Code)
	assert.Equal(t, "AR-20260120-00001", receivable.Code)
	assert.Equal(t, string(finance.StatusOpen), first.Status)
	assert.Equal(t, "1500.00", first.RemainingValue.String())
	assert.Contains(t, f.events.Types(), finance.EventObligationCreated)

	req.Code = first.Code
	_, err = f.obligations.Create(ctx, f.editor, finance.KindPayable, req)
	requireCode(t, err, shared.CodeAlreadyExists)

	_, err = f.obligations.Create(ctx, f.editor, finance.ObligationKind("loan"), req)
	requireCode(t, err, shared.CodeValidation)
}

func TestObligationService_PastDueIsOverdueOnCreate(t *testing.T) {
	f := newLedgerFixture(t)
	id := f.obligation(t, finance.KindReceivable, "80", f.today().AddDate(0, 0, -3))

	o, err := f.obligations.Get(context.Background(), f.viewer, finance.KindReceivable, id)
	require.NoError(t, err)
	assert.Equal(t, string(finance.StatusOverdue), o.Status)
	assert.Equal(t, 3, o.DaysOverdue)
}

func TestObligationService_Cancel(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountID := f.account(t, "Main", "100")
	untouched := f.obligation(t, finance.KindPayable, "50", f.today())
	partial := f.obligation(t, finance.KindPayable, "50", f.today())

	_, err := settle(f, accountID, line(finance.KindPayable, partial, "10"))
	require.NoError(t, err)

	resp, err := f.obligations.Cancel(ctx, f.editor, finance.KindPayable, untouched, "duplicated invoice")
	require.NoError(t, err)
	assert.Equal(t, string(finance.StatusCancelled), resp.Status)
	assert.Equal(t, "duplicated invoice", resp.CancelReason)
	assert.NotNil(t, resp.CancelledAt)
	assert.Contains(t, f.events.Types(), finance.EventObligationCancelled)

	_, err = f.obligations.Cancel(ctx, f.editor, finance.KindPayable, untouched, "again")
	requireCode(t, err, shared.CodeInvalidState)

	_, err = f.obligations.Cancel(ctx, f.editor, finance.KindPayable, partial, "too late")
	requireCode(t, err, finance.CodeCannotCancelPartiallySettled)

	_, err = f.obligations.Cancel(ctx, f.editor, finance.KindReceivable, untouched, "wrong registry")
	requireCode(t, err, shared.CodeNotFound)
}

func TestObligationService_CorrectStatus(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	id := f.obligation(t, finance.KindPayable, "100", f.today().AddDate(0, 0, 5))

	_, err := f.obligations.CorrectStatus(ctx, f.editor, finance.KindPayable, id, finance.StatusOpen)
	requireCode(t, err, shared.CodeForbidden)

	_, err = f.obligations.CorrectStatus(ctx, f.admin, finance.KindPayable, id, finance.StatusSettled)
	requireCode(t, err, shared.CodeInvalidState)

	resp, err := f.obligations.CorrectStatus(ctx, f.admin, finance.KindPayable, id, finance.StatusOpen)
	require.NoError(t, err)
	assert.Equal(t, string(finance.StatusOpen), resp.Status)

	resp, err = f.obligations.CorrectStatus(ctx, f.admin, finance.KindPayable, id, finance.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, string(finance.StatusCancelled), resp.Status)

	_, err = f.obligations.CorrectStatus(ctx, f.admin, finance.KindPayable, id, finance.StatusOpen)
	requireCode(t, err, shared.CodeInvalidState)
}

func TestObligationService_UpdateDetailsRederivesStatus(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	id := f.obligation(t, finance.KindReceivable, "100", f.today().AddDate(0, 0, 5))

	resp, err := f.obligations.UpdateDetails(ctx, f.editor, finance.KindReceivable, id, appfinance.UpdateObligationRequest{
		Description: "Consulting",
		DueDate:     f.today().AddDate(0, 0, -1),
		Category:    "services",
	})
	require.NoError(t, err)
	assert.Equal(t, "Consulting", resp.Description)
	assert.Equal(t, "services", resp.Category)
	assert.Equal(t, string(finance.StatusOverdue), resp.Status)
	assert.Equal(t, 2, resp.Version)
}

func TestObligationService_ReclassifyOverdueIsIdempotent(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountID := f.account(t, "Main", "1000")
	open := f.obligation(t, finance.KindPayable, "100", f.today())
	partial := f.obligation(t, finance.KindPayable, "100", f.today())
	settled := f.obligation(t, finance.KindPayable, "100", f.today())
	receivable := f.obligation(t, finance.KindReceivable, "100", f.today())
	future := f.obligation(t, finance.KindPayable, "100", f.today().AddDate(0, 0, 10))

	_, err := settle(f, accountID,
		line(finance.KindPayable, partial, "40"),
		line(finance.KindPayable, settled, "100"),
	)
	require.NoError(t, err)

	f.now = f.now.Add(48 * time.Hour)

	_, err = f.obligations.ReclassifyOverdue(ctx, f.editor, finance.KindPayable)
	requireCode(t, err, shared.CodeForbidden)

	result, err := f.obligations.ReclassifyOverdue(ctx, f.admin, finance.KindPayable)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Reclassified)
	assert.Equal(t, "2026-01-22", result.Date)

	result, err = f.obligations.ReclassifyOverdue(ctx, f.admin, finance.KindPayable)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Reclassified)

	for id, want := range map[uuid.UUID]finance.ObligationStatus{
		open:    finance.StatusOverdue,
		partial: finance.StatusOverdue,
		settled: finance.StatusSettled,
		future:  finance.StatusOpen,
	} {
		o, err := f.repos.ObligationRepo(finance.KindPayable).FindByIDForTenant(ctx, f.admin.TenantID, id)
		require.NoError(t, err)
		assert.Equal(t, want, o.Status, o.Code)
	}

	// the scheduler pass covers the receivable registry too
	n, err := f.obligations.ReclassifyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	o, err := f.repos.ObligationRepo(finance.KindReceivable).FindByIDForTenant(ctx, f.admin.TenantID, receivable)
	require.NoError(t, err)
	assert.Equal(t, finance.StatusOverdue, o.Status)
}

func TestObligationService_ListAndSummary(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountID := f.account(t, "Main", "1000")
	overdue := f.obligation(t, finance.KindPayable, "100", f.today().AddDate(0, 0, -1))
	partial := f.obligation(t, finance.KindPayable, "200", f.today().AddDate(0, 0, 3))
	f.obligation(t, finance.KindPayable, "300", f.today().AddDate(0, 0, 30))
	cancelled := f.obligation(t, finance.KindPayable, "400", f.today().AddDate(0, 0, 30))

	_, err := settle(f, accountID, line(finance.KindPayable, partial, "50"))
	require.NoError(t, err)
	_, err = f.obligations.Cancel(ctx, f.editor, finance.KindPayable, cancelled, "")
	require.NoError(t, err)

	items, total, err := f.obligations.List(ctx, f.viewer, finance.KindPayable, appfinance.ObligationListFilter{
		Status: "vencido,parcialmente_pago",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, overdue, items[0].ID)
	assert.Equal(t, partial, items[1].ID)
	assert.Equal(t, "25.00", items[1].PaidPercentage)

	items, _, err = f.obligations.List(ctx, f.viewer, finance.KindPayable, appfinance.ObligationListFilter{MinValue: "250"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, _, err = f.obligations.List(ctx, f.viewer, finance.KindPayable, appfinance.ObligationListFilter{Status: "paid"})
	requireCode(t, err, shared.CodeValidation)

	summary, err := f.obligations.Summary(ctx, f.viewer, finance.KindPayable)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ByStatus[string(finance.StatusOverdue)].Count)
	assert.Equal(t, int64(1), summary.ByStatus[string(finance.StatusCancelled)].Count)
	assert.Equal(t, int64(0), summary.ByStatus[string(finance.StatusSettled)].Count)
	assert.Equal(t, "150.00", summary.ByStatus[string(finance.StatusPartiallyPaid)].Remaining.String())
	assert.Equal(t, "550.00", summary.TotalOutstanding.String())
	assert.Equal(t, "100.00", summary.TotalOverdue.String())
}

func TestObligationService_ListFiltersByStatusAsOfToday(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountID := f.account(t, "Main", "1000")
	open := f.obligation(t, finance.KindPayable, "100", f.today().AddDate(0, 0, 1))
	partial := f.obligation(t, finance.KindPayable, "200", f.today().AddDate(0, 0, 1))
	later := f.obligation(t, finance.KindPayable, "300", f.today().AddDate(0, 0, 30))
	settled := f.obligation(t, finance.KindPayable, "50", f.today().AddDate(0, 0, 1))
	cancelled := f.obligation(t, finance.KindPayable, "400", f.today().AddDate(0, 0, -5))

	_, err := settle(f, accountID, line(finance.KindPayable, partial, "80"), line(finance.KindPayable, settled, "50"))
	require.NoError(t, err)
	_, err = f.obligations.Cancel(ctx, f.editor, finance.KindPayable, cancelled, "")
	require.NoError(t, err)

	// two days later, without any overdue sweep
	f.now = f.now.Add(48 * time.Hour)

	ids := func(status string) []uuid.UUID {
		t.Helper()
		items, total, err := f.obligations.List(ctx, f.viewer, finance.KindPayable, appfinance.ObligationListFilter{Status: status})
		require.NoError(t, err)
		require.Equal(t, int64(len(items)), total)
		out := make([]uuid.UUID, len(items))
		for i, it := range items {
			assert.Equal(t, status, it.Status, "listed status matches the filter")
			out[i] = it.ID
		}
		return out
	}

	assert.ElementsMatch(t, []uuid.UUID{open, partial}, ids("vencido"))
	assert.ElementsMatch(t, []uuid.UUID{later}, ids("em_aberto"))
	assert.Empty(t, ids("parcialmente_pago"))
	assert.ElementsMatch(t, []uuid.UUID{settled}, ids("quitado"))
	assert.ElementsMatch(t, []uuid.UUID{cancelled}, ids("cancelado"))

	// a payment on the not-yet-due obligation makes it partially paid
	_, err = settle(f, accountID, line(finance.KindPayable, later, "100"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{later}, ids("parcialmente_pago"))
	assert.Empty(t, ids("em_aberto"))
}
