package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/erp/ledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCashTransactionRepository implements CashTransactionRepository using GORM
type GormCashTransactionRepository struct {
	db *gorm.DB
}

// NewGormCashTransactionRepository creates a new GormCashTransactionRepository
func NewGormCashTransactionRepository(db *gorm.DB) *GormCashTransactionRepository {
	return &GormCashTransactionRepository{db: db}
}

// FindByIDForTenant finds a journal entry by ID for a specific tenant
func (r *GormCashTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.CashTransaction, error) {
	var model models.CashTransactionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.ScopeRow(tenantID, id)).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists journal entries in journal order
func (r *GormCashTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.CashTransactionFilter) ([]finance.CashTransaction, error) {
	var txModels []models.CashTransactionModel
	query := r.db.WithContext(ctx).Model(&models.CashTransactionModel{}).
		Scopes(tenant.Scope(tenantID))
	query = r.applyFilter(query, filter)

	f := filter.Normalize()
	if err := query.
		Order("transaction_date ASC").Order("seq ASC").
		Offset(f.Offset()).Limit(f.PageSize).
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toCashTransactions(txModels), nil
}

// CountForTenant counts journal entries matching the filter
func (r *GormCashTransactionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.CashTransactionFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.CashTransactionModel{}).
		Scopes(tenant.Scope(tenantID))
	if err := r.applyFilter(query, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByAccount returns every entry of an account in journal order, optionally up to a date
func (r *GormCashTransactionRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, upTo *time.Time) ([]finance.CashTransaction, error) {
	var txModels []models.CashTransactionModel
	query := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("bank_account_id = ?", accountID)
	if upTo != nil {
		query = query.Where("transaction_date <= ?", finance.DateOf(*upTo))
	}
	if err := query.
		Order("transaction_date ASC").Order("seq ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toCashTransactions(txModels), nil
}

// DistinctDates returns each date carrying at least one entry, ascending
func (r *GormCashTransactionRepository) DistinctDates(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).Model(&models.CashTransactionModel{}).
		Scopes(tenant.Scope(tenantID)).
		Distinct().
		Order("transaction_date ASC").
		Pluck("transaction_date", &dates).Error; err != nil {
		return nil, err
	}
	for i := range dates {
		dates[i] = finance.DateOf(dates[i])
	}
	return dates, nil
}

// Create inserts a journal entry
func (r *GormCashTransactionRepository) Create(ctx context.Context, tx *finance.CashTransaction) error {
	if err := r.assignSeq(ctx, []*finance.CashTransaction{tx}); err != nil {
		return err
	}
	model := models.CashTransactionModelFromDomain(tx)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	tx.MarkPersisted()
	return nil
}

// CreateBatch inserts several journal entries in one statement
func (r *GormCashTransactionRepository) CreateBatch(ctx context.Context, txs []*finance.CashTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	if err := r.assignSeq(ctx, txs); err != nil {
		return err
	}
	txModels := make([]*models.CashTransactionModel, len(txs))
	for i, tx := range txs {
		txModels[i] = models.CashTransactionModelFromDomain(tx)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(txModels, 100).Error; err != nil {
		return err
	}
	for _, tx := range txs {
		tx.MarkPersisted()
	}
	return nil
}

// assignSeq numbers entries after the last one stored for the same account
// and day, in slice order. Callers insert inside the transaction that also
// version-checks the account, so two writers on one account cannot both commit
// the same number.
func (r *GormCashTransactionRepository) assignSeq(ctx context.Context, txs []*finance.CashTransaction) error {
	type dayKey struct {
		account uuid.UUID
		date    time.Time
	}
	last := make(map[dayKey]int64)
	for _, tx := range txs {
		day := finance.DateOf(tx.TransactionDate)
		k := dayKey{account: tx.BankAccountID, date: day}
		n, ok := last[k]
		if !ok {
			row := r.db.WithContext(ctx).Model(&models.CashTransactionModel{}).
				Select("COALESCE(MAX(seq), 0)").
				Where("tenant_id = ? AND bank_account_id = ? AND transaction_date = ?", tx.TenantID, tx.BankAccountID, day).
				Row()
			if err := row.Scan(&n); err != nil {
				return fmt.Errorf("read journal sequence: %w", err)
			}
		}
		n++
		tx.Seq = n
		last[k] = n
	}
	return nil
}

// Delete removes a journal entry
func (r *GormCashTransactionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(tenant.ScopeRow(tenantID, id)).
		Delete(&models.CashTransactionModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormCashTransactionRepository) applyFilter(query *gorm.DB, filter finance.CashTransactionFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("LOWER(description) LIKE ? ESCAPE '\\'", containsPattern(filter.Search))
	}
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.DateFrom != nil {
		query = query.Where("transaction_date >= ?", finance.DateOf(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("transaction_date <= ?", finance.DateOf(*filter.DateTo))
	}
	if filter.ObligationID != nil {
		query = query.Where("obligation_id = ?", *filter.ObligationID)
	}
	return query
}

func toCashTransactions(txModels []models.CashTransactionModel) []finance.CashTransaction {
	txs := make([]finance.CashTransaction, len(txModels))
	for i, model := range txModels {
		txs[i] = *model.ToDomain()
	}
	return txs
}

var _ finance.CashTransactionRepository = (*GormCashTransactionRepository)(nil)
