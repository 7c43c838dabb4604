package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CodeInvalidCredentials is returned for an unknown user or a wrong password alike
const CodeInvalidCredentials = "INVALID_CREDENTIALS"

// ErrOperatorNotFound is returned by a directory lookup miss
var ErrOperatorNotFound = errors.New("operator not found")

// OperatorDirectory finds configured operators by username
type OperatorDirectory interface {
	FindByUsername(ctx context.Context, username string) (*identity.Operator, error)
}

// StaticDirectory is an OperatorDirectory over a fixed list
type StaticDirectory struct {
	byName map[string]*identity.Operator
}

// NewStaticDirectory indexes operators by lower-cased username
func NewStaticDirectory(operators ...*identity.Operator) (*StaticDirectory, error) {
	d := &StaticDirectory{byName: make(map[string]*identity.Operator, len(operators))}
	for _, op := range operators {
		key := strings.ToLower(op.Username)
		if _, dup := d.byName[key]; dup {
			return nil, fmt.Errorf("duplicate operator %q", op.Username)
		}
		d.byName[key] = op
	}
	return d, nil
}

// FindByUsername implements OperatorDirectory
func (d *StaticDirectory) FindByUsername(_ context.Context, username string) (*identity.Operator, error) {
	op, ok := d.byName[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrOperatorNotFound
	}
	return op, nil
}

// Len is the number of configured operators
func (d *StaticDirectory) Len() int {
	return len(d.byName)
}

// AuthService issues and revokes access tokens for configured operators
type AuthService struct {
	directory   OperatorDirectory
	jwt         *auth.JWTService
	revocations auth.RevocationList
	logger      *zap.Logger

	dummyOnce sync.Once
	dummy     *identity.Operator
}

// NewAuthService creates a new AuthService
func NewAuthService(directory OperatorDirectory, jwt *auth.JWTService, revocations auth.RevocationList, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{directory: directory, jwt: jwt, revocations: revocations, logger: logger}
}

// Login checks the password and signs a token carrying tenant, user and role
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	op, err := s.directory.FindByUsername(ctx, input.Username)
	if err != nil {
		if !errors.Is(err, ErrOperatorNotFound) {
			return nil, fmt.Errorf("find operator: %w", err)
		}
		// compare anyway so unknown users cost the same as wrong passwords
		s.dummyOperator().VerifyPassword(input.Password)
		s.logger.Warn("login for unknown operator", zap.String("username", input.Username))
		return nil, invalidCredentials()
	}
	if !op.VerifyPassword(input.Password) {
		s.logger.Warn("login with wrong password", zap.String("username", op.Username))
		return nil, invalidCredentials()
	}

	token, err := s.jwt.Issue(op.Caller())
	if err != nil {
		return nil, err
	}
	s.logger.Info("operator logged in",
		zap.String("username", op.Username),
		zap.String("tenant_id", op.TenantID.String()),
		zap.String("role", string(op.Role)))
	return &LoginResult{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		TenantID:    op.TenantID,
		UserID:      op.UserID,
		Username:    op.Username,
		Role:        string(op.Role),
	}, nil
}

// Logout revokes the presented token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revocations == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
		return err
	}
	s.logger.Info("operator logged out", zap.String("username", claims.Username))
	return nil
}

func (s *AuthService) dummyOperator() *identity.Operator {
	s.dummyOnce.Do(func() {
		hash, err := identity.HashPassword(uuid.NewString())
		if err != nil {
			hash = "$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"
		}
		s.dummy = &identity.Operator{PasswordHash: hash}
	})
	return s.dummy
}

func invalidCredentials() error {
	return shared.NewDomainError(CodeInvalidCredentials, "Invalid username or password")
}
