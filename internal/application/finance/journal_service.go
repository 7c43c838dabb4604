package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// JournalService records and removes manual cash transactions
type JournalService struct {
	repos TransactionalRepositories
	scope TransactionScope
	rt    runtime
}

// NewJournalService creates a new JournalService
func NewJournalService(repos TransactionalRepositories, scope TransactionScope, opts ...Option) *JournalService {
	return &JournalService{repos: repos, scope: scope, rt: newRuntime(opts)}
}

// RecordCashTransaction inserts an entry and moves the account balance in one transaction
func (s *JournalService) RecordCashTransaction(ctx context.Context, caller identity.Caller, req RecordCashTransactionRequest) (*CashTransactionResponse, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "journal", "record",
		telemetry.SpanAttrBankAccountID, req.BankAccountID,
		telemetry.SpanAttrAmount, req.Value,
	)
	defer span.End()

	tx, err := finance.NewCashTransaction(caller.TenantID, finance.CashTransactionInput{
		BankAccountID:   req.BankAccountID,
		TransactionDate: req.TransactionDate,
		Type:            req.Type,
		Description:     req.Description,
		Value:           req.Value,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}
	tx.SetCreatedBy(caller.UserID)

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.BankAccountRepo().FindByIDForTenant(ctx, caller.TenantID, req.BankAccountID)
		if err != nil {
			return notFound(err, "Bank account")
		}
		if err := account.EnsureActive(); err != nil {
			return err
		}
		if err := ensureDayOpen(ctx, repos, caller.TenantID, tx.TransactionDate); err != nil {
			return err
		}
		if err := repos.CashTransactionRepo().Create(ctx, tx); err != nil {
			return fmt.Errorf("insert cash transaction: %w", err)
		}
		return applyDelta(ctx, repos, account, tx.SignedValue())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.rt.metrics.RecordJournal(ctx, "insert")
	tx.AddDomainEvent(finance.NewCashTransactionRecordedEvent(tx, caller.UserID))
	s.rt.publish(ctx, tx)
	s.rt.logger.Info("cash transaction recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("bank_account_id", tx.BankAccountID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("value", tx.Value.StringFixed(2)))

	resp := ToCashTransactionResponse(tx, false)
	return &resp, nil
}

// DeleteCashTransaction removes a manual entry and recomputes its account's
// balance from the remaining set. Settlement entries cannot be deleted.
func (s *JournalService) DeleteCashTransaction(ctx context.Context, caller identity.Caller, id uuid.UUID) error {
	if err := caller.RequireAdmin(); err != nil {
		return err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "journal", "delete")
	defer span.End()

	var (
		deleted    *finance.CashTransaction
		newBalance decimal.Decimal
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.CashTransactionRepo().FindByIDForTenant(ctx, caller.TenantID, id)
		if err != nil {
			return notFound(err, "Cash transaction")
		}
		if tx.IsSettlement() {
			return shared.NewDomainErrorf(finance.CodeLinkedToSettlement,
				"Transaction is linked to %s %s and cannot be deleted", tx.ObligationKind, *tx.ObligationID)
		}
		if err := ensureDayOpen(ctx, repos, caller.TenantID, tx.TransactionDate); err != nil {
			return err
		}
		account, err := repos.BankAccountRepo().FindByIDForTenant(ctx, caller.TenantID, tx.BankAccountID)
		if err != nil {
			return notFound(err, "Bank account")
		}
		if err := repos.CashTransactionRepo().Delete(ctx, caller.TenantID, tx.ID); err != nil {
			return notFound(err, "Cash transaction")
		}
		if _, err := recomputeBalance(ctx, repos, account); err != nil {
			return err
		}
		if err := repos.BankAccountRepo().SaveWithLock(ctx, account); err != nil {
			return err
		}
		deleted = tx
		newBalance = account.Balance
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.rt.metrics.RecordJournal(ctx, "delete")
	s.rt.publishEvents(ctx, finance.NewCashTransactionDeletedEvent(deleted, newBalance, caller.UserID))
	s.rt.logger.Info("cash transaction deleted",
		zap.String("transaction_id", id.String()),
		zap.String("bank_account_id", deleted.BankAccountID.String()),
		zap.String("new_balance", newBalance.StringFixed(2)))
	return nil
}

// GetCashTransaction returns one entry
func (s *JournalService) GetCashTransaction(ctx context.Context, caller identity.Caller, id uuid.UUID) (*CashTransactionResponse, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	tx, err := s.repos.CashTransactionRepo().FindByIDForTenant(ctx, caller.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Cash transaction")
	}
	resp := ToCashTransactionResponse(tx, false)
	return &resp, nil
}

// ListCashTransactions lists journal entries by date then insertion order.
// When narrowed to one account each entry carries the running total of its day.
func (s *JournalService) ListCashTransactions(ctx context.Context, caller identity.Caller, filter CashTransactionListFilter) ([]CashTransactionResponse, int64, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, 0, err
	}
	domainFilter, err := toCashTransactionFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	txs, err := s.repos.CashTransactionRepo().FindAllForTenant(ctx, caller.TenantID, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("list cash transactions: %w", err)
	}
	total, err := s.repos.CashTransactionRepo().CountForTenant(ctx, caller.TenantID, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("count cash transactions: %w", err)
	}

	withRunning := domainFilter.BankAccountID != nil
	if withRunning {
		s.applyDayRunningTotals(ctx, caller.TenantID, *domainFilter.BankAccountID, txs)
	}
	responses := make([]CashTransactionResponse, len(txs))
	for i := range txs {
		responses[i] = ToCashTransactionResponse(&txs[i], withRunning)
	}
	return responses, total, nil
}

// applyDayRunningTotals fills BalanceAfter for a page of one account's
// entries. The running total covers the whole day, not just the page.
func (s *JournalService) applyDayRunningTotals(ctx context.Context, tenantID, accountID uuid.UUID, page []finance.CashTransaction) {
	if len(page) == 0 {
		return
	}
	last := page[len(page)-1].TransactionDate
	all, err := s.repos.CashTransactionRepo().FindByAccount(ctx, tenantID, accountID, &last)
	if err != nil {
		s.rt.logger.Warn("running totals unavailable", zap.Error(err))
		finance.ApplyRunningBalances(page)
		return
	}
	finance.ApplyRunningBalances(all)
	running := make(map[uuid.UUID]finance.CashTransaction, len(all))
	for _, t := range all {
		running[t.ID] = t
	}
	for i := range page {
		if t, ok := running[page[i].ID]; ok {
			page[i].BalanceAfter = t.BalanceAfter
		}
	}
}

func toCashTransactionFilter(filter CashTransactionListFilter) (finance.CashTransactionFilter, error) {
	domainFilter := finance.CashTransactionFilter{
		Filter: baseFilter(filter.Page, filter.PageSize, "transaction_date", "asc", ""),
	}
	var err error
	if domainFilter.BankAccountID, err = parseOptionalUUID("bank_account_id", filter.BankAccountID); err != nil {
		return domainFilter, err
	}
	if domainFilter.ObligationID, err = parseOptionalUUID("obligation_id", filter.ObligationID); err != nil {
		return domainFilter, err
	}
	if domainFilter.DateFrom, err = parseOptionalDate("date_from", filter.DateFrom); err != nil {
		return domainFilter, err
	}
	if domainFilter.DateTo, err = parseOptionalDate("date_to", filter.DateTo); err != nil {
		return domainFilter, err
	}
	if filter.Type != "" {
		t := finance.TransactionType(filter.Type)
		if !t.IsValid() {
			return domainFilter, shared.NewValidationError("type", "Type must be entrada or saida")
		}
		domainFilter.Type = &t
	}
	return domainFilter, nil
}

// ensureDayOpen rejects writes dated on a day that has been closed
func ensureDayOpen(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, date time.Time) error {
	closed, err := repos.CashClosingRepo().IsClosed(ctx, tenantID, date)
	if err != nil {
		return fmt.Errorf("check cash closing: %w", err)
	}
	if closed {
		return shared.NewDomainErrorf(finance.CodeDayClosed, "Cash day %s is already closed", finance.FormatDate(date))
	}
	return nil
}
