package finance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SettlementService applies batches of payments against payables and
// receivables. A batch commits completely or not at all.
type SettlementService struct {
	repos TransactionalRepositories
	scope TransactionScope
	rt    runtime
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(repos TransactionalRepositories, scope TransactionScope, opts ...Option) *SettlementService {
	return &SettlementService{repos: repos, scope: scope, rt: newRuntime(opts)}
}

// SettleBatch validates every line, then in one transaction re-reads the
// obligations under row locks, applies the payments, posts one journal entry
// per line and moves the bank balance by the net amount.
func (s *SettlementService) SettleBatch(ctx context.Context, caller identity.Caller, req SettleBatchRequest) (*SettleBatchResult, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "settle_batch",
		telemetry.SpanAttrTenantID, caller.TenantID,
		telemetry.SpanAttrBankAccountID, req.BankAccountID,
		telemetry.SpanAttrLines, len(req.Lines),
	)
	defer span.End()

	lines := make([]finance.SettlementLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = finance.SettlementLine{Kind: l.Kind, ObligationID: l.ObligationID, Value: l.Value}
	}
	sc := finance.SettlementContext{
		PaymentDate:   finance.DateOf(req.PaymentDate),
		PaymentMethod: req.PaymentMethod,
		BankAccountID: req.BankAccountID,
		Notes:         req.Notes,
	}

	if err := s.precheck(ctx, caller, lines, sc); err != nil {
		s.reject(ctx, span, err)
		return nil, err
	}
	telemetry.AddEvent(span, "validated")

	today := s.rt.today()
	var (
		outcome *finance.SettlementOutcome
		account *finance.BankAccount
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := ensureDayOpen(ctx, repos, caller.TenantID, sc.PaymentDate); err != nil {
			return err
		}
		var err error
		account, err = repos.BankAccountRepo().FindByIDForTenant(ctx, caller.TenantID, sc.BankAccountID)
		if err != nil {
			return notFound(err, "Bank account")
		}
		obligations, err := loadObligations(ctx, repos, caller, lines, true)
		if err != nil {
			return err
		}
		for _, o := range obligations {
			o.Refresh(today)
		}

		outcome, err = finance.ApplyBatch(lines, obligations, account, sc, today)
		if err != nil {
			return err
		}
		for _, o := range outcome.Obligations {
			if err := repos.ObligationRepo(o.Kind).SaveWithLock(ctx, o); err != nil {
				return err
			}
		}
		for _, tx := range outcome.Transactions {
			tx.SetCreatedBy(caller.UserID)
		}
		if err := repos.CashTransactionRepo().CreateBatch(ctx, outcome.Transactions); err != nil {
			return fmt.Errorf("post settlement transactions: %w", err)
		}
		return repos.BankAccountRepo().SaveWithLock(ctx, account)
	})
	if err != nil {
		s.reject(ctx, span, err)
		return nil, err
	}

	s.rt.metrics.RecordSettlement(ctx, batchKind(lines), len(lines), outcome.NetDelta)
	s.rt.publishEvents(ctx, finance.NewSettlementCompletedEvent(caller.TenantID, caller.UserID, account, sc, outcome))
	s.rt.logger.Info("settlement batch committed",
		zap.String("tenant_id", caller.TenantID.String()),
		zap.String("bank_account_id", account.ID.String()),
		zap.Int("lines", len(lines)),
		zap.String("net_delta", outcome.NetDelta.StringFixed(2)),
		zap.String("trace_id", telemetry.GetTraceID(ctx)))

	result := &SettleBatchResult{
		Processed:    len(lines),
		NetAmount:    money(outcome.NetDelta),
		BankAccount:  ToBankAccountResponse(account),
		Transactions: make([]CashTransactionResponse, len(outcome.Transactions)),
		Obligations:  make([]ObligationResponse, len(outcome.Obligations)),
	}
	for i, tx := range outcome.Transactions {
		result.Transactions[i] = ToCashTransactionResponse(tx, false)
	}
	for i, o := range outcome.Obligations {
		result.Obligations[i] = ToObligationResponse(o, today)
	}
	return result, nil
}

// precheck runs the validation phase against a plain read of current state
// so obviously bad batches are rejected before any lock is taken.
func (s *SettlementService) precheck(ctx context.Context, caller identity.Caller, lines []finance.SettlementLine, sc finance.SettlementContext) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if err := finance.ValidateLines(lines); err != nil {
		return err
	}
	account, err := s.repos.BankAccountRepo().FindByIDForTenant(ctx, caller.TenantID, sc.BankAccountID)
	if err != nil {
		return notFound(err, "Bank account")
	}
	obligations, err := loadObligations(ctx, s.repos, caller, lines, false)
	if err != nil {
		return err
	}
	today := s.rt.today()
	for _, o := range obligations {
		o.Refresh(today)
	}
	return finance.ValidateBatch(lines, obligations, account)
}

// loadObligations reads each distinct obligation once. With forUpdate the
// rows are locked in a stable order so concurrent batches cannot deadlock.
// Missing obligations are left out of the map; ValidateBatch reports them
// with their line number.
func loadObligations(ctx context.Context, repos TransactionalRepositories, caller identity.Caller, lines []finance.SettlementLine, forUpdate bool) (map[finance.ObligationRef]*finance.Obligation, error) {
	refs := make([]finance.ObligationRef, 0, len(lines))
	seen := make(map[finance.ObligationRef]bool, len(lines))
	for _, l := range lines {
		if !seen[l.Ref()] {
			seen[l.Ref()] = true
			refs = append(refs, l.Ref())
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].ID.String() < refs[j].ID.String()
	})

	out := make(map[finance.ObligationRef]*finance.Obligation, len(refs))
	for _, ref := range refs {
		repo := repos.ObligationRepo(ref.Kind)
		var (
			o   *finance.Obligation
			err error
		)
		if forUpdate {
			o, err = repo.FindByIDForUpdate(ctx, caller.TenantID, ref.ID)
		} else {
			o, err = repo.FindByIDForTenant(ctx, caller.TenantID, ref.ID)
		}
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load %s %s: %w", ref.Kind, ref.ID, err)
		}
		out[ref] = o
	}
	return out, nil
}

func (s *SettlementService) reject(ctx context.Context, span trace.Span, err error) {
	telemetry.RecordError(span, err)
	code := errorCode(err)
	if code == "" {
		s.rt.logger.Error("settlement batch failed", zap.Error(err))
		code = "INTERNAL"
	} else {
		s.rt.logger.Info("settlement batch rejected", zap.String("code", code), zap.Error(err))
	}
	s.rt.metrics.RecordSettlementRejected(ctx, code)
}

func batchKind(lines []finance.SettlementLine) string {
	kind := ""
	for _, l := range lines {
		if kind == "" {
			kind = string(l.Kind)
		} else if kind != string(l.Kind) {
			return "mixed"
		}
	}
	return kind
}

// errorCode extracts the domain code of err, or "" for infrastructure failures
func errorCode(err error) string {
	var lineErr *finance.BatchLineError
	if errors.As(err, &lineErr) && lineErr.Err != nil {
		return lineErr.Err.Code
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
