package persistence

import (
	"errors"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// immutableColumns are never rewritten by SaveWithLock
var immutableColumns = []string{"id", "tenant_id", "created_at", "created_by"}

// saveWithLock writes every mutable column of model into table when the
// stored row still holds expectedVersion. Zero values are written too.
func saveWithLock(db *gorm.DB, table string, model any, id uuid.UUID, expectedVersion int) error {
	result := db.Table(table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Select("*").
		Omit(immutableColumns...).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "The record has been modified by another transaction")
	}
	return nil
}

// translateNotFound maps gorm's missing-row error onto the domain one
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// containsPattern builds a case-insensitive LIKE pattern, escaping wildcards
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(s))) + "%"
}
