package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditService tracks credit lines and their movement trail
type CreditService struct {
	repos TransactionalRepositories
	scope TransactionScope
	rt    runtime
}

// NewCreditService creates a new CreditService
func NewCreditService(repos TransactionalRepositories, scope TransactionScope, opts ...Option) *CreditService {
	return &CreditService{repos: repos, scope: scope, rt: newRuntime(opts)}
}

// CreateCredit creates an uninitialized credit line. An empty code is generated.
func (s *CreditService) CreateCredit(ctx context.Context, caller identity.Caller, req CreateCreditRequest) (*CreditResponse, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = fmt.Sprintf("CR-%s-%s", s.rt.today().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
	}
	exists, err := s.repos.CreditRepo().ExistsByCode(ctx, caller.TenantID, code)
	if err != nil {
		return nil, fmt.Errorf("check credit code: %w", err)
	}
	if exists {
		return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Credit code %s already exists", code)
	}

	credit, err := finance.NewCredit(caller.TenantID, code, req.Description, req.NominalValue)
	if err != nil {
		return nil, err
	}
	credit.SetCreatedBy(caller.UserID)
	if err := s.repos.CreditRepo().Create(ctx, credit); err != nil {
		return nil, fmt.Errorf("create credit: %w", err)
	}
	resp := ToCreditResponse(credit)
	return &resp, nil
}

// GetCredit returns one credit line
func (s *CreditService) GetCredit(ctx context.Context, caller identity.Caller, id uuid.UUID) (*CreditResponse, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	credit, err := s.repos.CreditRepo().FindByIDForTenant(ctx, caller.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Credit")
	}
	resp := ToCreditResponse(credit)
	return &resp, nil
}

// ListCredits lists credit lines
func (s *CreditService) ListCredits(ctx context.Context, caller identity.Caller, page, pageSize int, search string) ([]CreditResponse, int64, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, 0, err
	}
	filter := baseFilter(page, pageSize, "", "", search)
	credits, err := s.repos.CreditRepo().FindAllForTenant(ctx, caller.TenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list credits: %w", err)
	}
	total, err := s.repos.CreditRepo().CountForTenant(ctx, caller.TenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count credits: %w", err)
	}
	responses := make([]CreditResponse, len(credits))
	for i := range credits {
		responses[i] = ToCreditResponse(&credits[i])
	}
	return responses, total, nil
}

// ListMovements returns the movement trail of a credit in insertion order
func (s *CreditService) ListMovements(ctx context.Context, caller identity.Caller, creditID uuid.UUID) ([]CreditMovementResponse, error) {
	if err := caller.RequireRead(); err != nil {
		return nil, err
	}
	if _, err := s.repos.CreditRepo().FindByIDForTenant(ctx, caller.TenantID, creditID); err != nil {
		return nil, notFound(err, "Credit")
	}
	movements, err := s.repos.CreditMovementRepo().FindByCredit(ctx, caller.TenantID, creditID)
	if err != nil {
		return nil, fmt.Errorf("list credit movements: %w", err)
	}
	responses := make([]CreditMovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToCreditMovementResponse(&movements[i])
	}
	return responses, nil
}

// ApplyCreditMovement validates a movement against the current balance and
// commits the movement row together with the credit update.
func (s *CreditService) ApplyCreditMovement(ctx context.Context, caller identity.Caller, creditID uuid.UUID, req ApplyCreditMovementRequest) (*CreditMovementResult, error) {
	if err := caller.RequireWrite(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "credit", "apply_movement",
		telemetry.SpanAttrCreditID, creditID,
		telemetry.SpanAttrAmount, req.Value,
	)
	defer span.End()

	date := req.MovementDate
	if date.IsZero() {
		date = s.rt.today()
	}

	var (
		credit   *finance.Credit
		movement *finance.CreditMovement
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		credit, err = repos.CreditRepo().FindByIDForTenant(ctx, caller.TenantID, creditID)
		if err != nil {
			return notFound(err, "Credit")
		}
		movement, err = credit.ApplyMovement(req.Type, req.Value, req.Description, date, caller.UserID)
		if err != nil {
			return err
		}
		if err := repos.CreditMovementRepo().Create(ctx, movement); err != nil {
			return fmt.Errorf("insert credit movement: %w", err)
		}
		return repos.CreditRepo().SaveWithLock(ctx, credit)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.rt.metrics.RecordCreditMovement(ctx, string(movement.MovementType))
	s.rt.publish(ctx, credit)
	s.rt.logger.Info("credit movement applied",
		zap.String("credit_id", credit.ID.String()),
		zap.String("movement_type", string(movement.MovementType)),
		zap.String("balance_before", movement.BalanceBefore.StringFixed(2)),
		zap.String("balance_after", movement.BalanceAfter.StringFixed(2)))

	return &CreditMovementResult{
		Credit:   ToCreditResponse(credit),
		Movement: ToCreditMovementResponse(movement),
	}, nil
}
