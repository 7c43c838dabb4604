package identity

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Caller identifies who is invoking an operation. It is passed explicitly
// to every service method; nothing in the core looks it up from ambient state.
type Caller struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Username string
	Role     Role
}

// NewCaller validates and builds a Caller
func NewCaller(tenantID, userID uuid.UUID, username string, role Role) (Caller, error) {
	if tenantID == uuid.Nil {
		return Caller{}, shared.NewDomainError(shared.CodeUnauthorized, "Caller has no tenant")
	}
	if userID == uuid.Nil {
		return Caller{}, shared.NewDomainError(shared.CodeUnauthorized, "Caller has no user id")
	}
	if !role.IsValid() {
		return Caller{}, shared.NewDomainErrorf(shared.CodeForbidden, "Unknown role %q", role)
	}
	return Caller{TenantID: tenantID, UserID: userID, Username: username, Role: role}, nil
}

// Require returns FORBIDDEN unless the caller holds one of the given roles
func (c Caller) Require(roles ...Role) error {
	if c.TenantID == uuid.Nil || c.UserID == uuid.Nil {
		return shared.ErrUnauthorized
	}
	for _, r := range roles {
		if c.Role == r {
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeForbidden,
		fmt.Sprintf("Role %q is not allowed to perform this action", c.Role))
}

// RequireWrite allows admin and editor
func (c Caller) RequireWrite() error {
	return c.Require(RoleAdmin, RoleEditor)
}

// RequireAdmin allows admin only
func (c Caller) RequireAdmin() error {
	return c.Require(RoleAdmin)
}

// RequireRead allows any known role
func (c Caller) RequireRead() error {
	return c.Require(RoleAdmin, RoleEditor, RoleViewer)
}
