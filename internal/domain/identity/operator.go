package identity

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Operator is a statically configured user allowed to obtain a token.
// User management lives outside this service; operators only exist so
// the API can be exercised without an external identity provider.
type Operator struct {
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Username     string
	PasswordHash string
	Role         Role
}

// NewOperator validates a configured operator entry
func NewOperator(tenantID, userID uuid.UUID, username, passwordHash string, role Role) (*Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, shared.NewValidationError("username", "Username cannot be empty")
	}
	if passwordHash == "" {
		return nil, shared.NewValidationError("password_hash", "Password hash cannot be empty")
	}
	if !role.IsValid() {
		return nil, shared.NewValidationError("role", "Role must be admin, editor or viewer")
	}
	if tenantID == uuid.Nil || userID == uuid.Nil {
		return nil, shared.NewValidationError("tenant_id", "Tenant and user id are required")
	}
	return &Operator{
		TenantID:     tenantID,
		UserID:       userID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	}, nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (o *Operator) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password)) == nil
}

// Caller converts the operator into a Caller
func (o *Operator) Caller() Caller {
	return Caller{TenantID: o.TenantID, UserID: o.UserID, Username: o.Username, Role: o.Role}
}

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", shared.NewValidationError("password", "Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
