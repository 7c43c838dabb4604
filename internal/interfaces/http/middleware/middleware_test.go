package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"strings"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jwtService(ttl time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "middleware-test-secret-0123456789",
		Issuer:                "ledger-test",
		AccessTokenExpiration: ttl,
	})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func protectedEngine(cfg AuthConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Authenticate(cfg))
	r.GET("/whoami", func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant": caller.TenantID, "role": caller.Role})
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	svc := jwtService(time.Hour)
	revocations := auth.NewMemoryRevocationList()
	r := protectedEngine(AuthConfig{JWT: svc, Revocations: revocations})

	caller := identity.Caller{TenantID: uuid.New(), UserID: uuid.New(), Username: "bob", Role: identity.RoleViewer}
	token, err := svc.Issue(caller)
	require.NoError(t, err)

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("valid token yields caller", func(t *testing.T) {
		w := call("Bearer " + token.AccessToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), caller.TenantID.String())
		assert.Contains(t, w.Body.String(), `"role":"viewer"`)
	})

	t.Run("missing header", func(t *testing.T) {
		w := call("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := call("Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		claims, err := svc.Validate(token.AccessToken)
		require.NoError(t, err)
		require.NoError(t, revocations.Revoke(context.Background(), claims.ID, time.Hour))

		w := call("Bearer " + token.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.CodeTokenRevoked, decode(t, w).Error.Code)
	})
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	svc := jwtService(-time.Minute)
	r := protectedEngine(AuthConfig{JWT: svc})
	token, err := svc.Issue(identity.Caller{TenantID: uuid.New(), UserID: uuid.New(), Role: identity.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.CodeTokenExpired, decode(t, w).Error.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", MaxRequestIDLength+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.example.com"}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := httptest.NewRequest(http.MethodOptions, "/", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	foreign := httptest.NewRequest(http.MethodGet, "/", nil)
	foreign.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, foreign)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789abcdef"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, dto.CodeRequestTooLarge, decode(t, w).Error.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfiling(t *testing.T) {
	labelOf := func(enabled bool) string {
		var route string
		r := gin.New()
		r.Use(Profiling(enabled))
		r.GET("/api/v1/credits/:id", func(c *gin.Context) {
			route, _ = pprof.Label(c.Request.Context(), "route")
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/credits/42", nil))
		require.Equal(t, http.StatusOK, w.Code)
		return route
	}

	assert.Equal(t, "/api/v1/credits/:id", labelOf(true))
	assert.Empty(t, labelOf(false))
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	r := gin.New()
	r.Use(RateLimit(rl))
	r.POST("/token", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	clock = clock.Add(time.Minute)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	type line struct {
		Value string `json:"value" binding:"required"`
	}
	type body struct {
		BankAccountID string `json:"bank_account_id" binding:"required,uuid"`
		Lines         []line `json:"lines" binding:"required,min=1,dive"`
	}

	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			c.JSON(http.StatusBadRequest, ValidationDetails(err))
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bank_account_id":"x","lines":[{"value":""}]}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var details []dto.ValidationDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	assert.ElementsMatch(t, []dto.ValidationDetail{
		{Field: "bank_account_id", Message: "Invalid UUID format"},
		{Field: "lines[0].value", Message: "This field is required"},
	}, details)

	assert.Equal(t, "body", ValidationDetails(&json.SyntaxError{})[0].Field)
}
