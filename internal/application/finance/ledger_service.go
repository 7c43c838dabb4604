package finance

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService manages bank accounts and their stored balances
type LedgerService struct {
	repos TransactionalRepositories
	scope TransactionScope
	rt    runtime
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(repos TransactionalRepositories, scope TransactionScope, opts ...Option) *LedgerService {
	return &LedgerService{repos: repos, scope: scope, rt: newRuntime(opts)}
}

// CreateBankAccount creates an active account with balance = initial balance
func (s *LedgerService) CreateBankAccount(ctx context.Context, caller identity.Caller, req CreateBankAccountRequest) (*BankAccountResponse, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_bank_account", telemetry.SpanAttrTenantID, caller.TenantID)
	defer span.End()

	account, err := finance.NewBankAccount(caller.TenantID, req.Name, req.Type, req.Code, req.InitialBalance)
	if err != nil {
		return nil, err
	}
	account.Notes = req.Notes
	account.SetCreatedBy(caller.UserID)

	if account.Code != "" {
		exists, err := s.repos.BankAccountRepo().ExistsByCode(ctx, caller.TenantID, account.Code, nil)
		if err != nil {
			return nil, fmt.Errorf("check bank account code: %w", err)
		}
		if exists {
			return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Bank account code %s already exists", account.Code)
		}
	}
	if err := s.repos.BankAccountRepo().Create(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create bank account: %w", err)
	}

	s.rt.logger.Info("bank account created",
		zap.String("tenant_id", caller.TenantID.String()),
		zap.String("bank_account_id", account.ID.String()),
		zap.String("initial_balance", account.InitialBalance.StringFixed(2)))
	resp := ToBankAccountResponse(account)
	return &resp, nil
}

// UpdateBankAccount edits descriptive fields and status. A new initial
// balance triggers a full recompute in the same transaction.
func (s *LedgerService) UpdateBankAccount(ctx context.Context, caller identity.Caller, id uuid.UUID, req UpdateBankAccountRequest) (*BankAccountResponse, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "update_bank_account", telemetry.SpanAttrBankAccountID, id)
	defer span.End()

	var account *finance.BankAccount
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = repos.BankAccountRepo().FindByIDForTenant(ctx, caller.TenantID, id)
		if err != nil {
			return notFound(err, "Bank account")
		}
		if req.Code != "" && req.Code != account.Code {
			exists, err := repos.BankAccountRepo().ExistsByCode(ctx, caller.TenantID, req.Code, &account.ID)
			if err != nil {
				return fmt.Errorf("check bank account code: %w", err)
			}
			if exists {
				return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Bank account code %s already exists", req.Code)
			}
		}
		if err := account.Update(req.Name, req.Type, req.Code, req.Notes); err != nil {
			return err
		}
		if req.Status != nil {
			switch *req.Status {
			case finance.AccountStatusActive:
				account.Activate()
			case finance.AccountStatusInactive:
				account.Deactivate()
			default:
				return shared.NewValidationError("status", "Status must be active or inactive")
			}
		}
		if req.InitialBalance != nil && !req.InitialBalance.Equal(account.InitialBalance) {
			if err := account.ChangeInitialBalance(*req.InitialBalance); err != nil {
				return err
			}
			if _, err := recomputeBalance(ctx, repos, account); err != nil {
				return err
			}
		}
		return repos.BankAccountRepo().SaveWithLock(ctx, account)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToBankAccountResponse(account)
	return &resp, nil
}

// GetBankAccount returns one account
func (s *LedgerService) GetBankAccount(ctx context.Context, caller identity.Caller, id uuid.UUID) (*BankAccountResponse, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	account, err := s.repos.BankAccountRepo().FindByIDForTenant(ctx, caller.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Bank account")
	}
	resp := ToBankAccountResponse(account)
	return &resp, nil
}

// ListBankAccounts lists accounts with filtering and pagination
func (s *LedgerService) ListBankAccounts(ctx context.Context, caller identity.Caller, filter BankAccountListFilter) ([]BankAccountResponse, int64, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, 0, err
	}
	domainFilter := finance.BankAccountFilter{
		Filter: baseFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
	}
	if filter.Status != "" {
		status := finance.BankAccountStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("status", "Status must be active or inactive")
		}
		domainFilter.Status = &status
	}
	if filter.Type != "" {
		accountType := finance.BankAccountType(filter.Type)
		if !accountType.IsValid() {
			return nil, 0, shared.NewValidationError("type", "Unknown account type")
		}
		domainFilter.Type = &accountType
	}

	accounts, err := s.repos.BankAccountRepo().FindAllForTenant(ctx, caller.TenantID, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("list bank accounts: %w", err)
	}
	total, err := s.repos.BankAccountRepo().CountForTenant(ctx, caller.TenantID, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("count bank accounts: %w", err)
	}

	responses := make([]BankAccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = ToBankAccountResponse(&accounts[i])
	}
	return responses, total, nil
}

// RecomputeBalance rebuilds the stored balance from the initial balance and
// every live transaction, reading and writing in one transaction.
func (s *LedgerService) RecomputeBalance(ctx context.Context, caller identity.Caller, id uuid.UUID) (*RecomputeResult, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "recompute_balance", telemetry.SpanAttrBankAccountID, id)
	defer span.End()

	var result RecomputeResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.BankAccountRepo().FindByIDForTenant(ctx, caller.TenantID, id)
		if err != nil {
			return notFound(err, "Bank account")
		}
		previous := account.Balance
		drift, err := recomputeBalance(ctx, repos, account)
		if err != nil {
			return err
		}
		if err := repos.BankAccountRepo().SaveWithLock(ctx, account); err != nil {
			return err
		}
		result = RecomputeResult{
			BankAccountID: account.ID,
			Name:          account.Name,
			Previous:      money(previous),
			Recomputed:    money(account.Balance),
			Drift:         money(drift),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !result.Drift.IsZero() {
		s.rt.logger.Warn("bank account balance drift corrected",
			zap.String("bank_account_id", id.String()),
			zap.String("drift", result.Drift.String()))
	}
	return &result, nil
}

// VerifyBalances recomputes every account of the tenant and reports the ones that drifted
func (s *LedgerService) VerifyBalances(ctx context.Context, caller identity.Caller) (*VerifyBalancesResult, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "verify_balances", telemetry.SpanAttrTenantID, caller.TenantID)
	defer span.End()

	// ids are collected first so recomputing cannot shift the pages
	var ids []uuid.UUID
	filter := finance.BankAccountFilter{Filter: shared.Filter{Page: 1, PageSize: 500}}
	for {
		page, err := s.repos.BankAccountRepo().FindAllForTenant(ctx, caller.TenantID, filter)
		if err != nil {
			return nil, fmt.Errorf("list bank accounts: %w", err)
		}
		for i := range page {
			ids = append(ids, page[i].ID)
		}
		if len(page) < filter.PageSize {
			break
		}
		filter.Page++
	}

	result := &VerifyBalancesResult{Drifted: make([]RecomputeResult, 0)}
	for _, id := range ids {
		r, err := s.RecomputeBalance(ctx, caller, id)
		if err != nil {
			return nil, err
		}
		result.Checked++
		if !r.Drift.IsZero() {
			result.Drifted = append(result.Drifted, *r)
		}
	}
	return result, nil
}

// applyDelta moves a balance inside the caller's transaction scope
func applyDelta(ctx context.Context, repos TransactionalRepositories, account *finance.BankAccount, signed decimal.Decimal) error {
	account.ApplyDelta(signed)
	return repos.BankAccountRepo().SaveWithLock(ctx, account)
}

// recomputeBalance resets account.Balance from a full scan and returns the
// drift. The caller saves the account.
func recomputeBalance(ctx context.Context, repos TransactionalRepositories, account *finance.BankAccount) (decimal.Decimal, error) {
	txs, err := repos.CashTransactionRepo().FindByAccount(ctx, account.TenantID, account.ID, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("scan transactions: %w", err)
	}
	return account.ResetBalance(finance.ComputeBalance(account.InitialBalance, txs)), nil
}
