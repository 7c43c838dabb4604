package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCreditRepository implements CreditRepository using GORM
type GormCreditRepository struct {
	db *gorm.DB
}

// NewGormCreditRepository creates a new GormCreditRepository
func NewGormCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

// FindByIDForTenant finds a credit by ID for a specific tenant
func (r *GormCreditRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Credit, error) {
	var model models.CreditModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.ScopeRow(tenantID, id)).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists credits with search and pagination
func (r *GormCreditRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]finance.Credit, error) {
	var creditModels []models.CreditModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CreditModel{}).Scopes(tenant.Scope(tenantID)), filter)

	f := filter.Normalize()
	sortField := ValidateSortField(f.OrderBy, CreditSortFields, "created_at")
	sortOrder := ValidateSortOrder(f.OrderDir)
	if err := query.
		Order(sortField + " " + sortOrder).Order("id").
		Offset(f.Offset()).Limit(f.PageSize).
		Find(&creditModels).Error; err != nil {
		return nil, err
	}
	credits := make([]finance.Credit, len(creditModels))
	for i, model := range creditModels {
		credits[i] = *model.ToDomain()
	}
	return credits, nil
}

// CountForTenant counts credits matching the filter
func (r *GormCreditRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CreditModel{}).Scopes(tenant.Scope(tenantID)), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if a code is already used by the tenant
func (r *GormCreditRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CreditModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new credit
func (r *GormCreditRepository) Create(ctx context.Context, credit *finance.Credit) error {
	model := models.CreditModelFromDomain(credit)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	credit.MarkPersisted()
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormCreditRepository) SaveWithLock(ctx context.Context, credit *finance.Credit) error {
	model := models.CreditModelFromDomain(credit)
	if err := saveWithLock(r.db.WithContext(ctx), model.TableName(), model, credit.ID, credit.PersistedVersion()); err != nil {
		return err
	}
	credit.MarkPersisted()
	return nil
}

func (r *GormCreditRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query = query.Where("(LOWER(code) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	return query
}

// GormCreditMovementRepository implements CreditMovementRepository using GORM.
// Movements are append-only; there is no update or delete.
type GormCreditMovementRepository struct {
	db *gorm.DB
}

// NewGormCreditMovementRepository creates a new GormCreditMovementRepository
func NewGormCreditMovementRepository(db *gorm.DB) *GormCreditMovementRepository {
	return &GormCreditMovementRepository{db: db}
}

// Create appends a movement
func (r *GormCreditMovementRepository) Create(ctx context.Context, m *finance.CreditMovement) error {
	return r.db.WithContext(ctx).Create(models.CreditMovementModelFromDomain(m)).Error
}

// FindByCredit returns the movements of a credit in insertion order
func (r *GormCreditMovementRepository) FindByCredit(ctx context.Context, tenantID, creditID uuid.UUID) ([]finance.CreditMovement, error) {
	var movementModels []models.CreditMovementModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("credit_id = ?", creditID).
		Order("created_at ASC").
		Find(&movementModels).Error; err != nil {
		return nil, err
	}
	movements := make([]finance.CreditMovement, len(movementModels))
	for i, model := range movementModels {
		movements[i] = *model.ToDomain()
	}
	return movements, nil
}

var (
	_ finance.CreditRepository         = (*GormCreditRepository)(nil)
	_ finance.CreditMovementRepository = (*GormCreditMovementRepository)(nil)
)
