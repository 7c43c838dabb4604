package finance

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountFilter narrows bank account listings
type BankAccountFilter struct {
	shared.Filter
	Status *BankAccountStatus
	Type   *BankAccountType
}

// BankAccountRepository persists bank accounts
type BankAccountRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankAccount, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BankAccountFilter) ([]BankAccount, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter BankAccountFilter) (int64, error)
	FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]BankAccount, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, account *BankAccount) error
	// SaveWithLock persists the account if the stored row still holds PersistedVersion
	SaveWithLock(ctx context.Context, account *BankAccount) error
}

// CashTransactionFilter narrows journal listings
type CashTransactionFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID
	Type          *TransactionType
	DateFrom      *time.Time
	DateTo        *time.Time
	ObligationID  *uuid.UUID
}

// CashTransactionRepository persists journal entries
type CashTransactionRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CashTransaction, error)
	// FindAllForTenant returns entries ordered by transaction date then insertion order
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter CashTransactionFilter) ([]CashTransaction, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter CashTransactionFilter) (int64, error)
	// FindByAccount returns every live entry of an account, optionally up to a date (inclusive)
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, upTo *time.Time) ([]CashTransaction, error)
	// DistinctDates returns the dates having at least one entry
	DistinctDates(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error)
	Create(ctx context.Context, tx *CashTransaction) error
	CreateBatch(ctx context.Context, txs []*CashTransaction) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// ObligationFilter narrows payable/receivable listings
type ObligationFilter struct {
	shared.Filter
	Statuses       []ObligationStatus
	// AsOf matches Statuses as derived on that date instead of the stored column
	AsOf *time.Time
	DueFrom        *time.Time
	DueTo          *time.Time
	Code           string
	CounterpartyID *uuid.UUID
	MinValue       *decimal.Decimal
	MaxValue       *decimal.Decimal
}

// ObligationRepository persists one kind of obligation (payables or receivables)
type ObligationRepository interface {
	Kind() ObligationKind
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Obligation, error)
	// FindByIDForUpdate loads the obligation holding a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Obligation, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ObligationFilter) ([]Obligation, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ObligationFilter) (int64, error)
	// FindOverdueCandidates returns open or partially paid obligations due before the date
	FindOverdueCandidates(ctx context.Context, tenantID uuid.UUID, before time.Time) ([]Obligation, error)
	// TenantsWithOpenObligations lists tenants that have anything still payable
	TenantsWithOpenObligations(ctx context.Context) ([]uuid.UUID, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	// NextCode generates a code such as AP-20260115-00001
	NextCode(ctx context.Context, tenantID uuid.UUID, on time.Time) (string, error)
	Create(ctx context.Context, o *Obligation) error
	SaveWithLock(ctx context.Context, o *Obligation) error
}

// CreditRepository persists credit lines
type CreditRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Credit, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Credit, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	Create(ctx context.Context, credit *Credit) error
	SaveWithLock(ctx context.Context, credit *Credit) error
}

// CreditMovementRepository persists the append-only movement trail
type CreditMovementRepository interface {
	Create(ctx context.Context, m *CreditMovement) error
	// FindByCredit returns movements in insertion order
	FindByCredit(ctx context.Context, tenantID, creditID uuid.UUID) ([]CreditMovement, error)
}

// CashClosingRepository persists daily closings
type CashClosingRepository interface {
	FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*CashClosing, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]CashClosing, error)
	ClosedDates(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error)
	IsClosed(ctx context.Context, tenantID uuid.UUID, date time.Time) (bool, error)
	Create(ctx context.Context, closing *CashClosing) error
}
