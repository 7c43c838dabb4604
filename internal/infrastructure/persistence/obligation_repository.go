package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormObligationRepository implements ObligationRepository for one kind.
// Payables and receivables share a model and live in separate tables.
type GormObligationRepository struct {
	db    *gorm.DB
	kind  finance.ObligationKind
	table string
}

// NewGormObligationRepository creates a repository over the table of kind
func NewGormObligationRepository(db *gorm.DB, kind finance.ObligationKind) *GormObligationRepository {
	return &GormObligationRepository{db: db, kind: kind, table: models.ObligationTable(kind)}
}

// Kind returns the obligation kind this repository serves
func (r *GormObligationRepository) Kind() finance.ObligationKind {
	return r.kind
}

func (r *GormObligationRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// FindByIDForTenant finds an obligation by ID for a specific tenant
func (r *GormObligationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Obligation, error) {
	var model models.ObligationModel
	if err := r.query(ctx).
		Scopes(tenant.ScopeRow(tenantID, id)).
		Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(r.kind), nil
}

// FindByIDForUpdate loads the obligation with SELECT ... FOR UPDATE
func (r *GormObligationRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Obligation, error) {
	var model models.ObligationModel
	if err := r.query(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.ScopeRow(tenantID, id)).
		Take(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(r.kind), nil
}

// FindAllForTenant lists obligations with filtering and pagination
func (r *GormObligationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.ObligationFilter) ([]finance.Obligation, error) {
	var obligationModels []models.ObligationModel
	query := r.query(ctx).Scopes(tenant.Scope(tenantID))
	query = r.applyFilter(query, filter)

	f := filter.Normalize()
	sortField := ValidateSortField(f.OrderBy, ObligationSortFields, "due_date")
	sortOrder := ValidateSortOrder(f.OrderDir)
	if err := query.
		Order(sortField + " " + sortOrder).Order("code ASC").
		Offset(f.Offset()).Limit(f.PageSize).
		Find(&obligationModels).Error; err != nil {
		return nil, err
	}
	return r.toDomain(obligationModels), nil
}

// CountForTenant counts obligations matching the filter
func (r *GormObligationRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.ObligationFilter) (int64, error) {
	var count int64
	query := r.query(ctx).Scopes(tenant.Scope(tenantID))
	if err := r.applyFilter(query, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOverdueCandidates returns open or partially paid obligations due before the date
func (r *GormObligationRepository) FindOverdueCandidates(ctx context.Context, tenantID uuid.UUID, before time.Time) ([]finance.Obligation, error) {
	var obligationModels []models.ObligationModel
	if err := r.query(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("status IN ? AND due_date < ?",
			[]finance.ObligationStatus{finance.StatusOpen, finance.StatusPartiallyPaid}, finance.DateOf(before)).
		Order("due_date ASC").
		Find(&obligationModels).Error; err != nil {
		return nil, err
	}
	return r.toDomain(obligationModels), nil
}

// TenantsWithOpenObligations lists tenants holding any obligation that still accepts payment
func (r *GormObligationRepository) TenantsWithOpenObligations(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	if err := r.query(ctx).
		Where("status IN ?", []finance.ObligationStatus{finance.StatusOpen, finance.StatusPartiallyPaid}).
		Distinct().
		Pluck("tenant_id", &tenantIDs).Error; err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

// ExistsByCode checks if a code is already used by the tenant
func (r *GormObligationRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.query(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextCode generates the next code of the day, e.g. AP-20260115-00001
func (r *GormObligationRepository) NextCode(ctx context.Context, tenantID uuid.UUID, on time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", r.kind.CodePrefix(), on.Format("20060102"))
	var last []string
	if err := r.query(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("code LIKE ?", prefix+"%").
		Order("code DESC").
		Limit(1).
		Pluck("code", &last).Error; err != nil {
		return "", err
	}
	next := 1
	if len(last) > 0 {
		if n, err := strconv.Atoi(strings.TrimPrefix(last[0], prefix)); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

// Create inserts a new obligation
func (r *GormObligationRepository) Create(ctx context.Context, o *finance.Obligation) error {
	model := models.ObligationModelFromDomain(o)
	if err := r.query(ctx).Create(model).Error; err != nil {
		return err
	}
	o.MarkPersisted()
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormObligationRepository) SaveWithLock(ctx context.Context, o *finance.Obligation) error {
	model := models.ObligationModelFromDomain(o)
	if err := saveWithLock(r.db.WithContext(ctx), r.table, model, o.ID, o.PersistedVersion()); err != nil {
		return err
	}
	o.MarkPersisted()
	return nil
}

func (r *GormObligationRepository) applyFilter(query *gorm.DB, filter finance.ObligationFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query = query.Where("(LOWER(code) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if len(filter.Statuses) > 0 {
		if filter.AsOf != nil {
			query = applyDerivedStatus(query, filter.Statuses, finance.DateOf(*filter.AsOf))
		} else {
			query = query.Where("status IN ?", filter.Statuses)
		}
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", finance.DateOf(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", finance.DateOf(*filter.DueTo))
	}
	if filter.Code != "" {
		query = query.Where("LOWER(code) LIKE ? ESCAPE '\\'", containsPattern(filter.Code))
	}
	if filter.CounterpartyID != nil {
		query = query.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.MinValue != nil {
		query = query.Where("nominal_value >= ?", *filter.MinValue)
	}
	if filter.MaxValue != nil {
		query = query.Where("nominal_value <= ?", *filter.MaxValue)
	}
	return query
}

// applyDerivedStatus matches the status DeriveStatus would give each row on
// today, so rows the overdue sweep has not reached yet still filter correctly.
func applyDerivedStatus(query *gorm.DB, statuses []finance.ObligationStatus, today time.Time) *gorm.DB {
	const live = "status <> '" + string(finance.StatusCancelled) + "'"
	var (
		clauses []string
		args    []any
	)
	for _, st := range statuses {
		switch st {
		case finance.StatusCancelled:
			clauses = append(clauses, "status = '"+string(finance.StatusCancelled)+"'")
		case finance.StatusSettled:
			clauses = append(clauses, "("+live+" AND paid_value >= nominal_value)")
		case finance.StatusOverdue:
			clauses = append(clauses, "("+live+" AND paid_value < nominal_value AND due_date < ?)")
			args = append(args, today)
		case finance.StatusPartiallyPaid:
			clauses = append(clauses, "("+live+" AND paid_value > 0 AND paid_value < nominal_value AND due_date >= ?)")
			args = append(args, today)
		case finance.StatusOpen:
			clauses = append(clauses, "("+live+" AND paid_value = 0 AND paid_value < nominal_value AND due_date >= ?)")
			args = append(args, today)
		}
	}
	if len(clauses) == 0 {
		return query.Where("1 = 0")
	}
	return query.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

func (r *GormObligationRepository) toDomain(obligationModels []models.ObligationModel) []finance.Obligation {
	obligations := make([]finance.Obligation, len(obligationModels))
	for i, model := range obligationModels {
		obligations[i] = *model.ToDomain(r.kind)
	}
	return obligations
}

var _ finance.ObligationRepository = (*GormObligationRepository)(nil)
