// Package tenant scopes GORM queries to one tenant.
//
// Every ledger table carries a tenant_id column; repositories compose
// Scope into their queries so a row of another tenant is never read or
// written:
//
//	db.WithContext(ctx).Scopes(tenant.Scope(tenantID)).Find(&accounts)
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a query is scoped to the nil tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// Column is the name of the tenant column on every tenant-owned table
const Column = "tenant_id"

// Scope applies tenant filtering to GORM queries. A nil tenant ID fails the
// statement instead of silently matching nothing.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(Column+" = ?", tenantID)
	}
}

// ScopeRow narrows a query to one row of one tenant
func ScopeRow(tenantID, id uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Scope(tenantID)(db).Where("id = ?", id)
	}
}
