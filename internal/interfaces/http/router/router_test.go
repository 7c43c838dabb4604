package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup_AppliesSharedMiddleware(t *testing.T) {
	engine := gin.New()
	tagged := func(c *gin.Context) {
		c.Header("X-Through", "api")
		c.Next()
	}
	r := NewRouter(engine, WithMiddleware(tagged))
	r.Register(NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}))
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "api", w.Header().Get("X-Through"))
}

func TestDomainGroup(t *testing.T) {
	g := NewDomainGroup("credits", "/credits")
	assert.Equal(t, "credits", g.Name())
	assert.Equal(t, "/credits", g.Prefix())

	blocked := false
	g.Use(func(c *gin.Context) {
		if c.GetHeader("X-Block") != "" {
			blocked = true
			c.AbortWithStatus(http.StatusTeapot)
			return
		}
		c.Next()
	})
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	g.GET("", ok).POST("", ok).PUT("/:id", ok).DELETE("/:id", ok)

	engine := gin.New()
	g.RegisterRoutes(engine.Group("/api/v1"))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/credits"},
		{http.MethodPost, "/api/v1/credits"},
		{http.MethodPut, "/api/v1/credits/1"},
		{http.MethodDelete, "/api/v1/credits/1"},
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, tc.method+" "+tc.path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	req.Header.Set("X-Block", "1")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, blocked)
}

func testEngine(t *testing.T) *gin.Engine {
	t.Helper()
	jwt := auth.NewJWTService(config.JWTConfig{
		Secret:                "router-test-secret-0123456789abcdef",
		Issuer:                "ledger-test",
		AccessTokenExpiration: time.Hour,
	})
	engine, err := NewEngine(Config{
		ServiceName:  "ledger-test",
		CORS:         middleware.DefaultCORSConfig(),
		MaxBodySize:  1 << 20,
		JWT:          jwt,
		Revocations:  auth.NewMemoryRevocationList(),
		TokenLimiter: middleware.NewRateLimiter(5, time.Minute),
	}, Handlers{
		System:           handler.NewSystemHandler("ledger", "test", nil),
		Auth:             handler.NewAuthHandler(nil),
		BankAccounts:     handler.NewBankAccountHandler(nil),
		CashTransactions: handler.NewCashTransactionHandler(nil),
		Payables:         handler.NewObligationHandler(finance.KindPayable, nil),
		Receivables:      handler.NewObligationHandler(finance.KindReceivable, nil),
		Settlements:      handler.NewSettlementHandler(nil),
		Credits:          handler.NewCreditHandler(nil),
		CashClosings:     handler.NewCashClosingHandler(nil),
	})
	require.NoError(t, err)
	return engine
}

func TestNewEngine_RequiresJWT(t *testing.T) {
	_, err := NewEngine(Config{}, Handlers{})
	assert.Error(t, err)
}

func TestNewEngine_MountsEveryRoute(t *testing.T) {
	engine := testEngine(t)

	registered := make(map[string]bool)
	for _, r := range engine.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	expected := []string{
		"GET /health",
		"POST /api/v1/auth/token",
		"POST /api/v1/auth/logout",
		"GET /api/v1/bank-accounts",
		"POST /api/v1/bank-accounts",
		"GET /api/v1/bank-accounts/:id",
		"PUT /api/v1/bank-accounts/:id",
		"POST /api/v1/bank-accounts/:id/recompute",
		"POST /api/v1/bank-accounts/verify",
		"GET /api/v1/cash-transactions",
		"POST /api/v1/cash-transactions",
		"GET /api/v1/cash-transactions/:id",
		"DELETE /api/v1/cash-transactions/:id",
		"POST /api/v1/settlements",
		"GET /api/v1/credits",
		"POST /api/v1/credits",
		"GET /api/v1/credits/:id",
		"GET /api/v1/credits/:id/movements",
		"POST /api/v1/credits/:id/movements",
		"GET /api/v1/cash-closings",
		"POST /api/v1/cash-closings",
		"GET /api/v1/cash-closings/open-days",
		"GET /api/v1/cash-closings/:date",
	}
	for _, kind := range []string{"payables", "receivables"} {
		base := "/api/v1/" + kind
		expected = append(expected,
			"GET "+base,
			"POST "+base,
			"GET "+base+"/summary",
			"POST "+base+"/reclassify-overdue",
			"GET "+base+"/:id",
			"PUT "+base+"/:id",
			"POST "+base+"/:id/cancel",
			"POST "+base+"/:id/status",
		)
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
	assert.Len(t, registered, len(expected))
}

func TestNewEngine_Protection(t *testing.T) {
	engine := testEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	for _, path := range []string{"/api/v1/bank-accounts", "/api/v1/payables/summary", "/api/v1/cash-closings/open-days"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
