package finance_test

import (
	"context"
	"testing"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ledgerFixture wires every service against one in-memory SQLite database
type ledgerFixture struct {
	db          *gorm.DB
	repos       *persistence.Repositories
	events      *testutil.RecordingPublisher
	now         time.Time
	admin       identity.Caller
	editor      identity.Caller
	viewer      identity.Caller
	ledger      *appfinance.LedgerService
	journal     *appfinance.JournalService
	obligations *appfinance.ObligationService
	settlement  *appfinance.SettlementService
	credits     *appfinance.CreditService
	closing     *appfinance.ClosingService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	db := testutil.NewLedgerDB(t)

	f := &ledgerFixture{
		db:     db,
		repos:  persistence.NewRepositories(db),
		events: &testutil.RecordingPublisher{},
		now:    time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC),
	}
	tenantID := uuid.New()
	f.admin = identity.Caller{TenantID: tenantID, UserID: uuid.New(), Username: "admin", Role: identity.RoleAdmin}
	f.editor = identity.Caller{TenantID: tenantID, UserID: uuid.New(), Username: "editor", Role: identity.RoleEditor}
	f.viewer = identity.Caller{TenantID: tenantID, UserID: uuid.New(), Username: "viewer", Role: identity.RoleViewer}

	scope := persistence.NewGormTransactionScope(db)
	opts := []appfinance.Option{
		appfinance.WithClock(func() time.Time { return f.now }),
		appfinance.WithEventPublisher(f.events),
	}
	f.ledger = appfinance.NewLedgerService(f.repos, scope, opts...)
	f.journal = appfinance.NewJournalService(f.repos, scope, opts...)
	f.obligations = appfinance.NewObligationService(f.repos, scope, opts...)
	f.settlement = appfinance.NewSettlementService(f.repos, scope, opts...)
	f.credits = appfinance.NewCreditService(f.repos, scope, opts...)
	f.closing = appfinance.NewClosingService(f.repos, scope, opts...)
	return f
}

func (f *ledgerFixture) today() time.Time {
	return finance.DateOf(f.now)
}

func (f *ledgerFixture) account(t *testing.T, name, initial string) uuid.UUID {
	t.Helper()
	resp, err := f.ledger.CreateBankAccount(context.Background(), f.editor, appfinance.CreateBankAccountRequest{
		Name:           name,
		Type:           finance.AccountTypeBank,
		InitialBalance: dec(initial),
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *ledgerFixture) obligation(t *testing.T, kind finance.ObligationKind, nominal string, due time.Time) uuid.UUID {
	t.Helper()
	resp, err := f.obligations.Create(context.Background(), f.editor, kind, appfinance.CreateObligationRequest{
		CounterpartyID: uuid.New(),
		Description:    "Invoice",
		NominalValue:   dec(nominal),
		DueDate:        due,
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *ledgerFixture) record(t *testing.T, accountID uuid.UUID, typ finance.TransactionType, value string, date time.Time) uuid.UUID {
	t.Helper()
	resp, err := f.journal.RecordCashTransaction(context.Background(), f.editor, appfinance.RecordCashTransactionRequest{
		BankAccountID:   accountID,
		TransactionDate: date,
		Type:            typ,
		Description:     "manual " + value,
		Value:           dec(value),
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *ledgerFixture) balance(t *testing.T, accountID uuid.UUID) decimal.Decimal {
	t.Helper()
	resp, err := f.ledger.GetBankAccount(context.Background(), f.viewer, accountID)
	require.NoError(t, err)
	return resp.Balance.Amount()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	require.Equal(t, code, de.Code, err.Error())
}
