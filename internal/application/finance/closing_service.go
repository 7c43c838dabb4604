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

// ClosingService reconciles informed end-of-day balances against the journal
type ClosingService struct {
	repos TransactionalRepositories
	scope TransactionScope
	rt    runtime
}

// NewClosingService creates a new ClosingService
func NewClosingService(repos TransactionalRepositories, scope TransactionScope, opts ...Option) *ClosingService {
	return &ClosingService{repos: repos, scope: scope, rt: newRuntime(opts)}
}

// OpenDays lists the transaction dates that have no closing yet, ascending
func (s *ClosingService) OpenDays(ctx context.Context, caller identity.Caller) ([]string, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	txDates, err := s.repos.CashTransactionRepo().DistinctDates(ctx, caller.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list transaction dates: %w", err)
	}
	closed, err := s.repos.CashClosingRepo().ClosedDates(ctx, caller.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list closed dates: %w", err)
	}
	days := finance.OpenDays(txDates, closed)
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = finance.FormatDate(d)
	}
	return out, nil
}

// Close records the closing of a day. Balances are never changed; the
// closing only stores what was informed, what the journal says, and the gap.
func (s *ClosingService) Close(ctx context.Context, caller identity.Caller, req CloseCashRequest) (*CashClosingResponse, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, shared.NewValidationError("closing_date", "Closing date is required")
	}
	date := finance.DateOf(req.Date)
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "close",
		telemetry.SpanAttrTenantID, caller.TenantID,
		telemetry.SpanAttrDate, finance.FormatDate(date),
	)
	defer span.End()

	var closing *finance.CashClosing
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		closed, err := repos.CashClosingRepo().IsClosed(ctx, caller.TenantID, date)
		if err != nil {
			return fmt.Errorf("check cash closing: %w", err)
		}
		if closed {
			return shared.NewDomainErrorf(finance.CodeAlreadyClosed, "Cash day %s is already closed", finance.FormatDate(date))
		}

		accounts, err := repos.BankAccountRepo().FindActiveForTenant(ctx, caller.TenantID)
		if err != nil {
			return fmt.Errorf("list active accounts: %w", err)
		}
		computed := make(map[uuid.UUID]decimal.Decimal, len(accounts))
		for i := range accounts {
			txs, err := repos.CashTransactionRepo().FindByAccount(ctx, caller.TenantID, accounts[i].ID, &date)
			if err != nil {
				return fmt.Errorf("scan transactions: %w", err)
			}
			computed[accounts[i].ID] = finance.ComputeBalance(accounts[i].InitialBalance, txs)
		}

		closing, err = finance.NewCashClosing(caller.TenantID, date, accounts, req.InformedBalances, computed, req.Notes, caller.UserID)
		if err != nil {
			return err
		}
		return repos.CashClosingRepo().Create(ctx, closing)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.rt.metrics.RecordClosing(ctx, closing.TotalDiscrepancy)
	s.rt.publish(ctx, closing)
	fields := []zap.Field{
		zap.String("closing_date", finance.FormatDate(date)),
		zap.Int("accounts", len(closing.Entries)),
		zap.String("total_discrepancy", closing.TotalDiscrepancy.StringFixed(2)),
	}
	if closing.HasDiscrepancy() {
		s.rt.logger.Warn("cash day closed with discrepancy", fields...)
	} else {
		s.rt.logger.Info("cash day closed", fields...)
	}

	resp := ToCashClosingResponse(closing)
	return &resp, nil
}

// GetClosing returns the closing of one day
func (s *ClosingService) GetClosing(ctx context.Context, caller identity.Caller, date time.Time) (*CashClosingResponse, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	closing, err := s.repos.CashClosingRepo().FindByDate(ctx, caller.TenantID, finance.DateOf(date))
	if err != nil {
		return nil, notFound(err, "Cash closing")
	}
	resp := ToCashClosingResponse(closing)
	return &resp, nil
}

// ListClosings returns closings in a date range, newest first
func (s *ClosingService) ListClosings(ctx context.Context, caller identity.Caller, from, to *time.Time) ([]CashClosingResponse, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	closings, err := s.repos.CashClosingRepo().FindAllForTenant(ctx, caller.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list cash closings: %w", err)
	}
	out := make([]CashClosingResponse, len(closings))
	for i := range closings {
		out[i] = ToCashClosingResponse(&closings[i])
	}
	return out, nil
}
