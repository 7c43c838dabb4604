package persistence

import (
	"context"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"gorm.io/gorm"
)

// Repositories hands out the ledger repositories bound to one *gorm.DB.
// Built on the root connection it auto-commits; built on a transaction
// handle every repository joins that transaction.
type Repositories struct {
	db *gorm.DB
}

// NewRepositories creates Repositories over db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{db: db}
}

// BankAccountRepo returns the bank account repository
func (r *Repositories) BankAccountRepo() finance.BankAccountRepository {
	return NewGormBankAccountRepository(r.db)
}

// CashTransactionRepo returns the journal repository
func (r *Repositories) CashTransactionRepo() finance.CashTransactionRepository {
	return NewGormCashTransactionRepository(r.db)
}

// ObligationRepo returns the payable or receivable repository
func (r *Repositories) ObligationRepo(kind finance.ObligationKind) finance.ObligationRepository {
	return NewGormObligationRepository(r.db, kind)
}

// CreditRepo returns the credit repository
func (r *Repositories) CreditRepo() finance.CreditRepository {
	return NewGormCreditRepository(r.db)
}

// CreditMovementRepo returns the credit movement repository
func (r *Repositories) CreditMovementRepo() finance.CreditMovementRepository {
	return NewGormCreditMovementRepository(r.db)
}

// CashClosingRepo returns the cash closing repository
func (r *Repositories) CashClosingRepo() finance.CashClosingRepository {
	return NewGormCashClosingRepository(r.db)
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Ensure GormTransactionScope implements TransactionScope
var _ appfinance.TransactionScope = (*GormTransactionScope)(nil)

// Ensure Repositories implements TransactionalRepositories
var _ appfinance.TransactionalRepositories = (*Repositories)(nil)
