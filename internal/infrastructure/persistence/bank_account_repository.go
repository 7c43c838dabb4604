package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBankAccountRepository implements BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByIDForTenant finds a bank account by ID for a specific tenant
func (r *GormBankAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankAccount, error) {
	var model models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.ScopeRow(tenantID, id)).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists bank accounts with filtering and pagination
func (r *GormBankAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BankAccountFilter) ([]finance.BankAccount, error) {
	var accountModels []models.BankAccountModel
	query := r.db.WithContext(ctx).Model(&models.BankAccountModel{}).
		Scopes(tenant.Scope(tenantID))
	query = r.applyFilter(query, filter)

	f := filter.Normalize()
	sortField := ValidateSortField(f.OrderBy, BankAccountSortFields, "name")
	sortOrder := ValidateSortOrder(f.OrderDir)
	query = query.Order(sortField + " " + sortOrder).Order("id").
		Offset(f.Offset()).Limit(f.PageSize)

	if err := query.Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]finance.BankAccount, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// CountForTenant counts bank accounts matching the filter
func (r *GormBankAccountRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BankAccountFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.BankAccountModel{}).
		Scopes(tenant.Scope(tenantID))
	if err := r.applyFilter(query, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindActiveForTenant returns every active account ordered by name
func (r *GormBankAccountRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) ([]finance.BankAccount, error) {
	var accountModels []models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("status = ?", finance.AccountStatusActive).
		Order("name ASC").Order("id").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]finance.BankAccount, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// ExistsByCode checks if a non-empty code is taken, optionally ignoring one account
func (r *GormBankAccountRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error) {
	if code == "" {
		return false, nil
	}
	var count int64
	query := r.db.WithContext(ctx).Model(&models.BankAccountModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("code = ?", code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new bank account
func (r *GormBankAccountRepository) Create(ctx context.Context, account *finance.BankAccount) error {
	model := models.BankAccountModelFromDomain(account)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	account.MarkPersisted()
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormBankAccountRepository) SaveWithLock(ctx context.Context, account *finance.BankAccount) error {
	model := models.BankAccountModelFromDomain(account)
	if err := saveWithLock(r.db.WithContext(ctx), model.TableName(), model, account.ID, account.PersistedVersion()); err != nil {
		return err
	}
	account.MarkPersisted()
	return nil
}

func (r *GormBankAccountRepository) applyFilter(query *gorm.DB, filter finance.BankAccountFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(code) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	return query
}

var _ finance.BankAccountRepository = (*GormBankAccountRepository)(nil)
