package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appfinance "github.com/erp/ledger/internal/application/finance"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// apiFixture mounts every ledger handler on an engine backed by in-memory SQLite.
// The caller is taken from the X-Test-Role header instead of a token.
type apiFixture struct {
	engine  *gin.Engine
	callers map[string]identity.Caller
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db := testutil.NewLedgerDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	now := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	opts := []appfinance.Option{appfinance.WithClock(func() time.Time { return now })}

	tenantID := uuid.New()
	f := &apiFixture{callers: map[string]identity.Caller{
		"admin":  {TenantID: tenantID, UserID: uuid.New(), Username: "admin", Role: identity.RoleAdmin},
		"editor": {TenantID: tenantID, UserID: uuid.New(), Username: "editor", Role: identity.RoleEditor},
		"viewer": {TenantID: tenantID, UserID: uuid.New(), Username: "viewer", Role: identity.RoleViewer},
	}}

	obligations := appfinance.NewObligationService(repos, scope, opts...)
	accounts := handler.NewBankAccountHandler(appfinance.NewLedgerService(repos, scope, opts...))
	journal := handler.NewCashTransactionHandler(appfinance.NewJournalService(repos, scope, opts...))
	payables := handler.NewObligationHandler(finance.KindPayable, obligations)
	receivables := handler.NewObligationHandler(finance.KindReceivable, obligations)
	settlements := handler.NewSettlementHandler(appfinance.NewSettlementService(repos, scope, opts...))
	credits := handler.NewCreditHandler(appfinance.NewCreditService(repos, scope, opts...))
	closings := handler.NewCashClosingHandler(appfinance.NewClosingService(repos, scope, opts...))

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1", func(c *gin.Context) {
		if caller, ok := f.callers[c.GetHeader("X-Test-Role")]; ok {
			c.Set(middleware.CallerKey, caller)
		}
		c.Next()
	})

	api.GET("/bank-accounts", accounts.List)
	api.POST("/bank-accounts", accounts.Create)
	api.POST("/bank-accounts/verify", accounts.Verify)
	api.GET("/bank-accounts/:id", accounts.Get)
	api.PUT("/bank-accounts/:id", accounts.Update)
	api.POST("/bank-accounts/:id/recompute", accounts.Recompute)

	api.GET("/cash-transactions", journal.List)
	api.POST("/cash-transactions", journal.Record)
	api.GET("/cash-transactions/:id", journal.Get)
	api.DELETE("/cash-transactions/:id", journal.Delete)

	for prefix, h := range map[string]*handler.ObligationHandler{"/payables": payables, "/receivables": receivables} {
		g := api.Group(prefix)
		g.GET("", h.List)
		g.POST("", h.Create)
		g.GET("/summary", h.Summary)
		g.POST("/reclassify-overdue", h.ReclassifyOverdue)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.POST("/:id/cancel", h.Cancel)
		g.POST("/:id/status", h.CorrectStatus)
	}

	api.POST("/settlements", settlements.Settle)

	api.GET("/credits", credits.List)
	api.POST("/credits", credits.Create)
	api.GET("/credits/:id", credits.Get)
	api.GET("/credits/:id/movements", credits.ListMovements)
	api.POST("/credits/:id/movements", credits.ApplyMovement)

	api.GET("/cash-closings", closings.List)
	api.POST("/cash-closings", closings.Close)
	api.GET("/cash-closings/open-days", closings.OpenDays)
	api.GET("/cash-closings/:date", closings.Get)

	f.engine = r
	return f
}

// envelope mirrors dto.Response with raw data for flexible decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
		Details   []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

func (f *apiFixture) do(t *testing.T, role, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// ref is the subset of every read model the tests chain on
type ref struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Balance        string `json:"balance"`
	RemainingValue string `json:"remaining_value"`
	PaidValue      string `json:"paid_value"`
	CurrentBalance string `json:"current_balance"`
}

func (f *apiFixture) createAccount(t *testing.T, name, initial string) string {
	t.Helper()
	status, env := f.do(t, "editor", http.MethodPost, "/api/v1/bank-accounts", map[string]any{
		"name": name, "type": "bank", "initial_balance": initial,
	})
	require.Equal(t, http.StatusCreated, status)
	return decodeData[ref](t, env).ID
}

func (f *apiFixture) createObligation(t *testing.T, kind, nominal, due string) string {
	t.Helper()
	status, env := f.do(t, "editor", http.MethodPost, "/api/v1/"+kind+"s", map[string]any{
		"counterparty_id": uuid.NewString(),
		"description":     "Invoice",
		"nominal_value":   nominal,
		"due_date":        due,
	})
	require.Equal(t, http.StatusCreated, status)
	return decodeData[ref](t, env).ID
}

func (f *apiFixture) balance(t *testing.T, accountID string) string {
	t.Helper()
	status, env := f.do(t, "viewer", http.MethodGet, "/api/v1/bank-accounts/"+accountID, nil)
	require.Equal(t, http.StatusOK, status)
	return decodeData[ref](t, env).Balance
}
