package persistence

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCashClosingRepository implements CashClosingRepository using GORM
type GormCashClosingRepository struct {
	db *gorm.DB
}

// NewGormCashClosingRepository creates a new GormCashClosingRepository
func NewGormCashClosingRepository(db *gorm.DB) *GormCashClosingRepository {
	return &GormCashClosingRepository{db: db}
}

// FindByDate returns the closing of one date with its entries
func (r *GormCashClosingRepository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*finance.CashClosing, error) {
	var model models.CashClosingModel
	if err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("bank_account_name ASC")
		}).
		Scopes(tenant.Scope(tenantID)).
		Where("closing_date = ?", finance.DateOf(date)).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists closings in a date range, newest first
func (r *GormCashClosingRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]finance.CashClosing, error) {
	var closingModels []models.CashClosingModel
	query := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("bank_account_name ASC")
		}).
		Scopes(tenant.Scope(tenantID))
	if from != nil {
		query = query.Where("closing_date >= ?", finance.DateOf(*from))
	}
	if to != nil {
		query = query.Where("closing_date <= ?", finance.DateOf(*to))
	}
	if err := query.Order("closing_date DESC").Find(&closingModels).Error; err != nil {
		return nil, err
	}
	closings := make([]finance.CashClosing, len(closingModels))
	for i, model := range closingModels {
		closings[i] = *model.ToDomain()
	}
	return closings, nil
}

// ClosedDates returns every closed date, ascending
func (r *GormCashClosingRepository) ClosedDates(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).Model(&models.CashClosingModel{}).
		Scopes(tenant.Scope(tenantID)).
		Order("closing_date ASC").
		Pluck("closing_date", &dates).Error; err != nil {
		return nil, err
	}
	for i := range dates {
		dates[i] = finance.DateOf(dates[i])
	}
	return dates, nil
}

// IsClosed reports whether the date has a closing
func (r *GormCashClosingRepository) IsClosed(ctx context.Context, tenantID uuid.UUID, date time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CashClosingModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("closing_date = ?", finance.DateOf(date)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the closing and its entries
func (r *GormCashClosingRepository) Create(ctx context.Context, closing *finance.CashClosing) error {
	model := models.CashClosingModelFromDomain(closing)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	closing.MarkPersisted()
	return nil
}

var _ finance.CashClosingRepository = (*GormCashClosingRepository)(nil)
