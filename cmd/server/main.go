package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	financeapp "github.com/erp/ledger/internal/application/finance"
	identityapp "github.com/erp/ledger/internal/application/identity"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/identity"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/erp/ledger/migrations"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry first so the database plugin and services pick up the providers
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		LinkProfiles:      cfg.Telemetry.ProfilingEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingAddress,
		ApplicationName: serviceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	ledgerMetrics, err := telemetry.NewLedgerMetrics()
	if err != nil {
		log.Fatal("Failed to register ledger metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		WithVariables:   cfg.Telemetry.DBLogFullSQL,
		DBName:          cfg.Database.DBName,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Fatal("Failed to enable database tracing", zap.Error(err))
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access sql.DB", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		m, err := migration.NewEmbedded(sqlDB, migrations.FS, log)
		if err != nil {
			log.Fatal("Failed to prepare migrations", zap.Error(err))
		}
		if err := m.Up(); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Redis is optional; without it tokens are revoked and events deduplicated in memory
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using in-memory stores", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	var revocations auth.RevocationList = auth.NewMemoryRevocationList()
	storeOpts := []cache.IdempotencyStoreFactoryOption{cache.WithLogger(log)}
	if redisClient != nil {
		breaker := cache.NewRedisBreaker("redis", log)
		revocations = auth.NewRedisRevocationList(redisClient).WithBreaker(breaker)
		storeOpts = append(storeOpts, cache.WithRedisClient(redisClient), cache.WithBreaker(breaker))
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Event, storeOpts...).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()

	// Domain events are published after commit and land in the audit log once
	eventBus := event.NewInMemoryEventBus(log)
	audit := event.NewIdempotentHandler(
		event.NewAuditHandler(event.NewLedgerCodec(), log),
		idempotencyStore,
		log,
		event.WithIdempotencyConfig(cache.IdempotencyConfig(cfg.Event)),
	)
	eventBus.Subscribe(audit)

	repos := persistence.NewRepositories(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)
	opts := []financeapp.Option{
		financeapp.WithLogger(log),
		financeapp.WithEventPublisher(eventBus),
		financeapp.WithMetrics(ledgerMetrics),
		financeapp.WithLocation(cfg.Ledger.Location()),
		financeapp.WithSweepConcurrency(cfg.Ledger.OverdueScanConcurrency),
	}
	ledgerService := financeapp.NewLedgerService(repos, scope, opts...)
	journalService := financeapp.NewJournalService(repos, scope, opts...)
	obligationService := financeapp.NewObligationService(repos, scope, opts...)
	settlementService := financeapp.NewSettlementService(repos, scope, opts...)
	creditService := financeapp.NewCreditService(repos, scope, opts...)
	closingService := financeapp.NewClosingService(repos, scope, opts...)

	overdueCfg := scheduler.DefaultOverdueConfig()
	overdueCfg.Enabled = cfg.Ledger.OverdueScanEnabled
	overdueCfg.Interval = cfg.Ledger.OverdueScanInterval
	overdue, err := scheduler.NewOverdueScheduler(obligationService, overdueCfg, log)
	if err != nil {
		log.Fatal("Failed to create overdue scheduler", zap.Error(err))
	}
	if err := overdue.Start(ctx); err != nil {
		log.Fatal("Failed to start overdue scheduler", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	handlers := router.Handlers{
		System:           handler.NewSystemHandler(cfg.App.Name, version, db),
		BankAccounts:     handler.NewBankAccountHandler(ledgerService),
		CashTransactions: handler.NewCashTransactionHandler(journalService),
		Payables:         handler.NewObligationHandler(finance.KindPayable, obligationService),
		Receivables:      handler.NewObligationHandler(finance.KindReceivable, obligationService),
		Settlements:      handler.NewSettlementHandler(settlementService),
		Credits:          handler.NewCreditHandler(creditService),
		CashClosings:     handler.NewCashClosingHandler(closingService),
	}
	if len(cfg.Auth.DevUsers) > 0 {
		directory, err := devDirectory(cfg.Auth.DevUsers)
		if err != nil {
			log.Fatal("Invalid auth.dev_users", zap.Error(err))
		}
		handlers.Auth = handler.NewAuthHandler(identityapp.NewAuthService(directory, jwtService, revocations, log))
		log.Info("Token endpoint enabled", zap.Int("operators", directory.Len()))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine, err := router.NewEngine(router.Config{
		ServiceName:      serviceName,
		TracingEnabled:   cfg.Telemetry.Enabled,
		ProfilingEnabled: profiler.Enabled(),
		CORS:             cors,
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		JWT:              jwtService,
		Revocations:      revocations,
		TokenLimiter:     middleware.NewRateLimiter(cfg.HTTP.TokenRateLimit, cfg.HTTP.TokenRateWindow),
		Logger:           log,
	}, handlers)
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := overdue.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping overdue scheduler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing spans", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing logs", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// devDirectory builds the operator directory behind the token endpoint
func devDirectory(users []config.DevUser) (*identityapp.StaticDirectory, error) {
	operators := make([]*identity.Operator, 0, len(users))
	for _, u := range users {
		tenantID, err := uuid.Parse(u.TenantID)
		if err != nil {
			return nil, errors.New("dev user " + u.Username + ": invalid tenant_id")
		}
		userID, err := uuid.Parse(u.UserID)
		if err != nil {
			return nil, errors.New("dev user " + u.Username + ": invalid user_id")
		}
		op, err := identity.NewOperator(tenantID, userID, u.Username, u.PasswordHash, identity.ParseRole(u.Role))
		if err != nil {
			return nil, err
		}
		operators = append(operators, op)
	}
	return identityapp.NewStaticDirectory(operators...)
}
