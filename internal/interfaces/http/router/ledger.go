package router

import (
	"errors"

	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers of the ledger API. Auth is optional; without
// it the token endpoints are not mounted.
type Handlers struct {
	System           *handler.SystemHandler
	Auth             *handler.AuthHandler
	BankAccounts     *handler.BankAccountHandler
	CashTransactions *handler.CashTransactionHandler
	Payables         *handler.ObligationHandler
	Receivables      *handler.ObligationHandler
	Settlements      *handler.SettlementHandler
	Credits          *handler.CreditHandler
	CashClosings     *handler.CashClosingHandler
}

// Config carries the middleware settings of the engine
type Config struct {
	ServiceName    string
	TracingEnabled bool
	// ProfilingEnabled labels profile samples with the matched route
	ProfilingEnabled bool
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
	JWT            *auth.JWTService
	Revocations    auth.RevocationList
	// TokenLimiter throttles the credential endpoint; nil disables it
	TokenLimiter *middleware.RateLimiter
	// Meter records HTTP metrics; nil uses the global meter provider
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewEngine builds the gin engine with the full middleware chain and every
// ledger route mounted.
func NewEngine(cfg Config, h Handlers) (*gin.Engine, error) {
	if cfg.JWT == nil {
		return nil, errors.New("router: JWT service is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	metrics := middleware.HTTPMetrics()
	if cfg.Meter != nil {
		metrics = middleware.HTTPMetricsWithMeter(cfg.Meter)
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.Profiling(cfg.ProfilingEnabled),
		middleware.CORS(cfg.CORS),
		middleware.SecureHeaders(),
		middleware.BodyLimit(cfg.MaxBodySize),
		metrics,
	)

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	authenticate := middleware.Authenticate(middleware.AuthConfig{
		JWT:         cfg.JWT,
		Revocations: cfg.Revocations,
		Logger:      cfg.Logger,
	})

	// The token endpoint sits outside the authenticated router
	if h.Auth != nil {
		public := engine.Group("/api/v1/auth")
		tokenChain := []gin.HandlerFunc{h.Auth.Token}
		if cfg.TokenLimiter != nil {
			tokenChain = append([]gin.HandlerFunc{middleware.RateLimit(cfg.TokenLimiter)}, tokenChain...)
		}
		public.POST("/token", tokenChain...)
		public.POST("/logout", authenticate, middleware.SpanEnricher(), h.Auth.Logout)
	}

	r := NewRouter(engine, WithAPIVersion("v1"), WithMiddleware(authenticate, middleware.SpanEnricher()))
	for _, g := range ledgerGroups(h) {
		r.Register(g)
	}
	r.Setup()
	return engine, nil
}

func ledgerGroups(h Handlers) []*DomainGroup {
	var groups []*DomainGroup

	if h.BankAccounts != nil {
		groups = append(groups, NewDomainGroup("bank-accounts", "/bank-accounts").
			GET("", h.BankAccounts.List).
			POST("", h.BankAccounts.Create).
			POST("/verify", h.BankAccounts.Verify).
			GET("/:id", h.BankAccounts.Get).
			PUT("/:id", h.BankAccounts.Update).
			POST("/:id/recompute", h.BankAccounts.Recompute))
	}

	if h.CashTransactions != nil {
		groups = append(groups, NewDomainGroup("cash-transactions", "/cash-transactions").
			GET("", h.CashTransactions.List).
			POST("", h.CashTransactions.Record).
			GET("/:id", h.CashTransactions.Get).
			DELETE("/:id", h.CashTransactions.Delete))
	}

	for _, oh := range []*handler.ObligationHandler{h.Payables, h.Receivables} {
		if oh == nil {
			continue
		}
		name := string(oh.Kind()) + "s"
		groups = append(groups, NewDomainGroup(name, "/"+name).
			GET("", oh.List).
			POST("", oh.Create).
			GET("/summary", oh.Summary).
			POST("/reclassify-overdue", oh.ReclassifyOverdue).
			GET("/:id", oh.Get).
			PUT("/:id", oh.Update).
			POST("/:id/cancel", oh.Cancel).
			POST("/:id/status", oh.CorrectStatus))
	}

	if h.Settlements != nil {
		groups = append(groups, NewDomainGroup("settlements", "/settlements").
			POST("", h.Settlements.Settle))
	}

	if h.Credits != nil {
		groups = append(groups, NewDomainGroup("credits", "/credits").
			GET("", h.Credits.List).
			POST("", h.Credits.Create).
			GET("/:id", h.Credits.Get).
			GET("/:id/movements", h.Credits.ListMovements).
			POST("/:id/movements", h.Credits.ApplyMovement))
	}

	if h.CashClosings != nil {
		groups = append(groups, NewDomainGroup("cash-closings", "/cash-closings").
			GET("", h.CashClosings.List).
			POST("", h.CashClosings.Close).
			GET("/open-days", h.CashClosings.OpenDays).
			GET("/:date", h.CashClosings.Get))
	}

	return groups
}
