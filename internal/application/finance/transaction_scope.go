package finance

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
)

// TransactionScope runs a unit of work against the ledger repositories.
// Everything done through the repositories handed to fn commits or rolls
// back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction; an error from fn rolls it back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the ledger repositories bound to one transaction.
// Outside a scope the same interface gives plain, auto-committing access.
type TransactionalRepositories interface {
	BankAccountRepo() finance.BankAccountRepository
	CashTransactionRepo() finance.CashTransactionRepository
	ObligationRepo(kind finance.ObligationKind) finance.ObligationRepository
	CreditRepo() finance.CreditRepository
	CreditMovementRepo() finance.CreditMovementRepository
	CashClosingRepo() finance.CashClosingRepository
}
