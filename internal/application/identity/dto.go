package identity

import (
	"time"

	"github.com/google/uuid"
)

// LoginInput carries operator credentials
type LoginInput struct {
	Username string
	Password string
}

// LoginResult is a signed access token and who it identifies
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	TenantID    uuid.UUID `json:"tenant_id"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
}
