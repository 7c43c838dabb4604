package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin context keys set by Authenticate. The tenant and user keys are the
// ones the access log reads.
const (
	ClaimsKey   = "jwt_claims"
	CallerKey   = "caller"
	TenantIDKey = logger.GinTenantIDKey
	UserIDKey   = logger.GinUserIDKey
)

const bearerPrefix = "Bearer "

// AuthConfig configures Authenticate
type AuthConfig struct {
	JWT *auth.JWTService
	// Revocations is optional; a lookup failure lets the request through
	Revocations auth.RevocationList
	Logger      *zap.Logger
}

// Authenticate validates the bearer token and stores the resulting
// identity.Caller for the handlers.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Missing bearer token")
			return
		}

		claims, err := cfg.JWT.Validate(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			log.Debug("token rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
			if errors.Is(err, auth.ErrExpiredToken) {
				abort(c, http.StatusUnauthorized, dto.CodeTokenExpired, "Token has expired")
				return
			}
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Invalid token")
			return
		}

		if cfg.Revocations != nil && claims.ID != "" {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims.ID)
			switch {
			case err != nil:
				log.Error("revocation lookup failed", zap.String("jti", claims.ID), zap.Error(err))
			case revoked:
				abort(c, http.StatusUnauthorized, dto.CodeTokenRevoked, "Token has been revoked")
				return
			}
		}

		caller, err := claims.Caller()
		if err != nil {
			abort(c, http.StatusUnauthorized, shared.CodeUnauthorized, "Token does not identify a caller")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(CallerKey, caller)
		c.Set(TenantIDKey, claims.TenantID)
		c.Set(UserIDKey, claims.UserID)

		ctx, _ := logger.WithCaller(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.TenantID, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CallerFromContext returns the authenticated caller
func CallerFromContext(c *gin.Context) (identity.Caller, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return identity.Caller{}, false
	}
	caller, ok := v.(identity.Caller)
	return caller, ok
}

// ClaimsFromContext returns the validated token claims
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
