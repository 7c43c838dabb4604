package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ObligationService manages the payable and receivable registries. Payments
// are not applied here; they go through SettlementService.
type ObligationService struct {
	repos TransactionalRepositories
	scope TransactionScope
	rt    runtime
}

// NewObligationService creates a new ObligationService
func NewObligationService(repos TransactionalRepositories, scope TransactionScope, opts ...Option) *ObligationService {
	return &ObligationService{repos: repos, scope: scope, rt: newRuntime(opts)}
}

func kindLabel(kind finance.ObligationKind) string {
	if kind == finance.KindReceivable {
		return "Receivable"
	}
	return "Payable"
}

func validKind(kind finance.ObligationKind) error {
	if !kind.IsValid() {
		return shared.NewValidationError("kind", "Kind must be payable or receivable")
	}
	return nil
}

// Create registers an obligation. An empty code is generated.
func (s *ObligationService) Create(ctx context.Context, caller identity.Caller, kind finance.ObligationKind, req CreateObligationRequest) (*ObligationResponse, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if err := validKind(kind); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "obligation", "create",
		telemetry.SpanAttrKind, string(kind),
		telemetry.SpanAttrAmount, req.NominalValue,
	)
	defer span.End()

	today := s.rt.today()
	repo := s.repos.ObligationRepo(kind)

	code := strings.TrimSpace(req.Code)
	if code == "" {
		generated, err := repo.NextCode(ctx, caller.TenantID, today)
		if err != nil {
			return nil, fmt.Errorf("generate %s code: %w", kind, err)
		}
		code = generated
	} else {
		exists, err := repo.ExistsByCode(ctx, caller.TenantID, code)
		if err != nil {
			return nil, fmt.Errorf("check %s code: %w", kind, err)
		}
		if exists {
			return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "%s code %s already exists", kindLabel(kind), code)
		}
	}

	o, err := finance.NewObligation(caller.TenantID, kind, code, req.CounterpartyID, req.Description, req.NominalValue, req.DueDate, today)
	if err != nil {
		return nil, err
	}
	o.ContractID = req.ContractID
	o.Category = strings.TrimSpace(req.Category)
	o.CostCenter = strings.TrimSpace(req.CostCenter)
	o.Notes = req.Notes
	o.SetCreatedBy(caller.UserID)
	o.AddDomainEvent(finance.NewObligationCreatedEvent(o))

	if err := repo.Create(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	s.rt.publish(ctx, o)
	s.rt.logger.Info("obligation created",
		zap.String("kind", string(kind)),
		zap.String("code", o.Code),
		zap.String("status", string(o.Status)),
		zap.String("nominal_value", o.NominalValue.StringFixed(2)))

	resp := ToObligationResponse(o, today)
	return &resp, nil
}

// Get returns one obligation with status re-derived against today
func (s *ObligationService) Get(ctx context.Context, caller identity.Caller, kind finance.ObligationKind, id uuid.UUID) (*ObligationResponse, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	if err := validKind(kind); err != nil {
		return nil, err
	}
	o, err := s.repos.ObligationRepo(kind).FindByIDForTenant(ctx, caller.TenantID, id)
	if err != nil {
		return nil, notFound(err, kindLabel(kind))
	}
	today := s.rt.today()
	o.Refresh(today)
	resp := ToObligationResponse(o, today)
	return &resp, nil
}

// List returns obligations matching the filter, each re-derived against today
func (s *ObligationService) List(ctx context.Context, caller identity.Caller, kind finance.ObligationKind, filter ObligationListFilter) ([]ObligationResponse, int64, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, 0, err
	}
	if err := validKind(kind); err != nil {
		return nil, 0, err
	}
	domainFilter, err := toObligationFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	today := s.rt.today()
	domainFilter.AsOf = &today

	repo := s.repos.ObligationRepo(kind)
	items, err := repo.FindAllForTenant(ctx, caller.TenantID, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", kind, err)
	}
	total, err := repo.CountForTenant(ctx, caller.TenantID, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", kind, err)
	}

	responses := make([]ObligationResponse, len(items))
	for i := range items {
		items[i].Refresh(today)
		responses[i] = ToObligationResponse(&items[i], today)
	}
	return responses, total, nil
}

// UpdateDetails edits descriptive fields and due date; status is re-derived
func (s *ObligationService) UpdateDetails(ctx context.Context, caller identity.Caller, kind finance.ObligationKind, id uuid.UUID, req UpdateObligationRequest) (*ObligationResponse, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if err := validKind(kind); err != nil {
		return nil, err
	}
	today := s.rt.today()
	o, err := s.mutate(ctx, caller, kind, id, func(o *finance.Obligation) error {
		return o.UpdateDetails(req.Description, req.DueDate, req.Category, req.CostCenter, req.Notes, today)
	})
	if err != nil {
		return nil, err
	}
	resp := ToObligationResponse(o, today)
	return &resp, nil
}

// Cancel cancels an obligation that has nothing paid
func (s *ObligationService) Cancel(ctx context.Context, caller identity.Caller, kind finance.ObligationKind, id uuid.UUID, reason string) (*ObligationResponse, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	if err := validKind(kind); err != nil {
		return nil, err
	}
	o, err := s.mutate(ctx, caller, kind, id, func(o *finance.Obligation) error {
		return o.Cancel(reason, caller.UserID)
	})
	if err != nil {
		return nil, err
	}
	s.rt.publish(ctx, o)
	s.rt.logger.Info("obligation cancelled",
		zap.String("kind", string(kind)),
		zap.String("code", o.Code),
		zap.String("reason", o.CancelReason))
	resp := ToObligationResponse(o, s.rt.today())
	return &resp, nil
}

// CorrectStatus is the administrative status correction. Only the derived
// status, or a legal cancellation, is accepted.
func (s *ObligationService) CorrectStatus(ctx context.Context, caller identity.Caller, kind finance.ObligationKind, id uuid.UUID, requested finance.ObligationStatus) (*ObligationResponse, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validKind(kind); err != nil {
		return nil, err
	}
	today := s.rt.today()
	o, err := s.mutate(ctx, caller, kind, id, func(o *finance.Obligation) error {
		return o.CorrectStatus(requested, today, caller.UserID)
	})
	if err != nil {
		return nil, err
	}
	s.rt.publish(ctx, o)
	s.rt.logger.Info("obligation status corrected",
		zap.String("kind", string(kind)),
		zap.String("code", o.Code),
		zap.String("status", string(o.Status)),
		zap.String("user", caller.Username))
	resp := ToObligationResponse(o, today)
	return &resp, nil
}

func (s *ObligationService) mutate(ctx context.Context, caller identity.Caller, kind finance.ObligationKind, id uuid.UUID, fn func(o *finance.Obligation) error) (*finance.Obligation, error) {
	var o *finance.Obligation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		repo := repos.ObligationRepo(kind)
		var err error
		o, err = repo.FindByIDForUpdate(ctx, caller.TenantID, id)
		if err != nil {
			return notFound(err, kindLabel(kind))
		}
		if err := fn(o); err != nil {
			return err
		}
		return repo.SaveWithLock(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ReclassifyOverdue runs the overdue pass for the caller's tenant
func (s *ObligationService) ReclassifyOverdue(ctx context.Context, caller identity.Caller, kind finance.ObligationKind) (*ReclassifyResult, error) {
	if err := caller.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validKind(kind); err != nil {
		return nil, err
	}
	today := s.rt.today()
	n, err := s.ReclassifyTenant(ctx, kind, caller.TenantID, today)
	if err != nil {
		return nil, err
	}
	return &ReclassifyResult{Kind: string(kind), Reclassified: n, Date: finance.FormatDate(today)}, nil
}

// ReclassifyTenant flips open and partially paid obligations past due to
// overdue. Running it twice on the same day changes nothing the second time.
// Rows changed concurrently are skipped and picked up by the next pass.
func (s *ObligationService) ReclassifyTenant(ctx context.Context, kind finance.ObligationKind, tenantID uuid.UUID, today time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "obligation", "reclassify_overdue",
		telemetry.SpanAttrKind, string(kind),
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrDate, finance.FormatDate(today),
	)
	defer span.End()

	count := 0
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		repo := repos.ObligationRepo(kind)
		candidates, err := repo.FindOverdueCandidates(ctx, tenantID, finance.DateOf(today))
		if err != nil {
			return fmt.Errorf("find overdue candidates: %w", err)
		}
		for i := range candidates {
			o := &candidates[i]
			if !o.ReclassifyOverdue(today) {
				continue
			}
			if err := repo.SaveWithLock(ctx, o); err != nil {
				if errors.Is(err, shared.ErrConcurrencyConflict) {
					s.rt.logger.Debug("skipping obligation changed concurrently", zap.String("id", o.ID.String()))
					continue
				}
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	if count > 0 {
		s.rt.logger.Info("obligations reclassified as overdue",
			zap.String("kind", string(kind)),
			zap.String("tenant_id", tenantID.String()),
			zap.Int("count", count))
	}
	return count, nil
}

// ReclassifyAll runs the overdue pass for both registries across every tenant
// that has something payable. Used by the scheduler.
func (s *ObligationService) ReclassifyAll(ctx context.Context) (int, error) {
	today := s.rt.today()

	var (
		mu    sync.Mutex
		total int
		errs  []error
	)
	var g errgroup.Group
	g.SetLimit(s.rt.sweepConcurrency)

	for _, kind := range []finance.ObligationKind{finance.KindPayable, finance.KindReceivable} {
		tenants, err := s.repos.ObligationRepo(kind).TenantsWithOpenObligations(ctx)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("list tenants for %s: %w", kind, err))
			mu.Unlock()
			continue
		}
		for _, tenantID := range tenants {
			g.Go(func() error {
				n, err := s.ReclassifyTenant(ctx, kind, tenantID, today)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, fmt.Errorf("reclassify %s for tenant %s: %w", kind, tenantID, err))
					return nil
				}
				total += n
				return nil
			})
		}
	}
	_ = g.Wait()
	return total, errors.Join(errs...)
}

// Summary aggregates a registry per status as of today
func (s *ObligationService) Summary(ctx context.Context, caller identity.Caller, kind finance.ObligationKind) (*ObligationSummary, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	if err := validKind(kind); err != nil {
		return nil, err
	}
	today := s.rt.today()
	repo := s.repos.ObligationRepo(kind)

	type acc struct {
		count     int64
		nominal   decimal.Decimal
		remaining decimal.Decimal
	}
	perStatus := make(map[finance.ObligationStatus]*acc)
	for _, st := range finance.AllStatuses {
		perStatus[st] = &acc{}
	}
	outstanding, overdue := decimal.Zero, decimal.Zero

	filter := finance.ObligationFilter{Filter: shared.Filter{Page: 1, PageSize: 500, OrderBy: "created_at", OrderDir: "asc"}}
	for {
		page, err := repo.FindAllForTenant(ctx, caller.TenantID, filter)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", kind, err)
		}
		for i := range page {
			o := &page[i]
			o.Refresh(today)
			a := perStatus[o.Status]
			a.count++
			a.nominal = a.nominal.Add(o.NominalValue)
			a.remaining = a.remaining.Add(o.RemainingValue)
			if o.Status.AcceptsPayment() {
				outstanding = outstanding.Add(o.RemainingValue)
			}
			if o.Status == finance.StatusOverdue {
				overdue = overdue.Add(o.RemainingValue)
			}
		}
		if len(page) < filter.PageSize {
			break
		}
		filter.Page++
	}

	summary := &ObligationSummary{
		Kind:             string(kind),
		ByStatus:         make(map[string]StatusTotals, len(perStatus)),
		TotalOutstanding: money(outstanding),
		TotalOverdue:     money(overdue),
	}
	for st, a := range perStatus {
		summary.ByStatus[string(st)] = StatusTotals{Count: a.count, Nominal: money(a.nominal), Remaining: money(a.remaining)}
	}
	return summary, nil
}

func toObligationFilter(filter ObligationListFilter) (finance.ObligationFilter, error) {
	domainFilter := finance.ObligationFilter{
		Filter: baseFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		Code:   strings.TrimSpace(filter.Code),
	}
	if filter.Status != "" {
		for _, raw := range strings.Split(filter.Status, ",") {
			st := finance.ObligationStatus(strings.TrimSpace(raw))
			if !st.IsValid() {
				return domainFilter, shared.NewValidationError("status", fmt.Sprintf("Unknown status %q", raw))
			}
			domainFilter.Statuses = append(domainFilter.Statuses, st)
		}
	}
	var err error
	if domainFilter.DueFrom, err = parseOptionalDate("due_from", filter.DueFrom); err != nil {
		return domainFilter, err
	}
	if domainFilter.DueTo, err = parseOptionalDate("due_to", filter.DueTo); err != nil {
		return domainFilter, err
	}
	if domainFilter.CounterpartyID, err = parseOptionalUUID("counterparty_id", filter.CounterpartyID); err != nil {
		return domainFilter, err
	}
	if domainFilter.MinValue, err = parseOptionalDecimal("min_value", filter.MinValue); err != nil {
		return domainFilter, err
	}
	if domainFilter.MaxValue, err = parseOptionalDecimal("max_value", filter.MaxValue); err != nil {
		return domainFilter, err
	}
	return domainFilter, nil
}
