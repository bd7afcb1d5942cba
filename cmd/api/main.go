package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docgate/docs"
	"docgate/internal/approval"
	"docgate/internal/audit"
	"docgate/internal/breaker"
	"docgate/internal/config"
	"docgate/internal/database"
	"docgate/internal/database/migration"
	"docgate/internal/document"
	handlers "docgate/internal/http/handler"
	"docgate/internal/http/middleware"
	"docgate/internal/llm"
	"docgate/internal/logger"
	"docgate/internal/metrics"
	"docgate/internal/model"
	"docgate/internal/otel"
	"docgate/internal/rbac"
	"docgate/internal/repository"
	"docgate/internal/repository/memory"
	"docgate/internal/repository/postgres"
	"docgate/internal/repository/redisstore"
	"docgate/internal/sanitizer"
	"docgate/internal/scanner"
	"docgate/internal/service"
	"docgate/internal/session"
	"docgate/internal/storage"
	"docgate/internal/validation"
)

// Breaker names, one per external dependency.
const (
	llmDependency     = "llm"
	storageDependency = "storage"
)

// @title Docgate API
// @version 1.0
// @description Security-gated document summarization with human approval.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log := logger.New(logger.Config{FilePath: cfg.LogFile, Production: cfg.Production, Level: cfg.LogLevel})
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	shutdownTracing, err := otel.Init(ctx, cfg.Version, log)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	// Prometheus collectors live on a private registry served at /metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("failed to register http metrics", zap.Error(err))
	}

	// PostgreSQL is optional; every store falls back to memory without it.
	var db *sql.DB
	if cfg.Database.Enabled() {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	scan := scanner.New()
	auditLog := newAuditLogger(cfg, db, scan, log).WithObserver(m.AuditEvent)
	auditLog.SystemStartup(ctx, cfg.Version)

	breakers := breaker.NewRegistry(breaker.Settings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
		CallTimeout:      cfg.Breaker.CallTimeout,
		OnStateChange: func(name string, from, to model.CircuitPhase) {
			m.CircuitChanged(name, from, to)
			log.Warn("circuit state changed", zap.String("dependency", name), zap.String("from", string(from)), zap.String("to", string(to)))
			if to == model.CircuitOpen {
				auditLog.CircuitOpened(context.Background(), name)
			}
		},
		// A missing object or record is an answer, not a failing dependency.
		IsSuccessful: func(err error) bool {
			return errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, repository.ErrNotFound)
		},
	})

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal("failed to initialize object storage", zap.Error(err))
	}
	storageBreaker := breakers.Get(storageDependency)

	approvals, quarantine := newApprovalStores(db)
	workflow := approval.NewWorkflow(approvals)

	sessionRepo, closeSessions := newSessionRepository(ctx, cfg, log)
	defer closeSessions()
	sessions := session.NewManager(session.Config{TTL: cfg.Session.TTL, MaxActions: cfg.Session.MaxActions}, sessionRepo, auditLog, log)
	go sessions.RunCleanup(ctx, cfg.Session.CleanupInterval)

	policy := rbac.DefaultConfig()
	if cfg.RBACConfigPath != "" {
		policy, err = rbac.LoadConfig(cfg.RBACConfigPath)
		if err != nil {
			log.Fatal("failed to load rbac config", zap.Error(err))
		}
		auditLog.ConfigRead(ctx, "system", cfg.RBACConfigPath)
	}
	access := rbac.New(policy, rbac.NewStaticRoleLookup(policy.UserRoles), auditLog, log)

	validator := validation.New(validation.Config{MaxDocuments: cfg.Limits.MaxDocuments})
	resolver, err := newResolver(cfg, objStore, storageBreaker)
	if err != nil {
		log.Fatal("failed to initialize document resolver", zap.Error(err))
	}

	translation := service.NewTranslationService(service.TranslationDeps{
		Validator: validator,
		SizeGuard: validation.NewSizeGuard(validation.SizeLimits{
			MaxPages:           cfg.Limits.MaxPages,
			MaxCharacters:      cfg.Limits.MaxCharacters,
			MaxBytes:           cfg.Limits.MaxBytes,
			MaxDocuments:       cfg.Limits.MaxDocuments,
			MaxTotalCharacters: cfg.Limits.MaxTotalCharacters,
			Strategy:           validation.BatchStrategy(cfg.Limits.BatchStrategy),
		}),
		Resolver:   resolver,
		Sanitizer:  sanitizer.New(),
		Scanner:    scan,
		Generator:  llm.NewOllamaProvider(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout),
		Breaker:    breakers.Get(llmDependency),
		Workflow:   workflow,
		Quarantine: quarantine,
		Audit:      auditLog,
		Metrics:    m,
		Log:        log,
	})
	review := service.NewReviewService(service.ReviewDeps{
		Workflow: workflow,
		RBAC:     access,
		Scanner:  scan,
		Storage:  objStore,
		Breaker:  storageBreaker,
		Audit:    auditLog,
		Log:      log,
	})
	documents := service.NewDocumentService(objStore, cfg.DocumentPrefix, validator, cfg.Limits.MaxBytes, storageBreaker, auditLog)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Limits.MaxBytes) + 1<<20,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// Structured request logs
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, handlers.Deps{
		DB:          db,
		Documents:   documents,
		Translation: translation,
		Review:      review,
		Sessions:    sessions,
		Tracker:     sessions,
		Circuits:    breakers,
		Operators:   access,
		Auth: middleware.Auth(middleware.AuthConfig{
			Secret: []byte(cfg.Auth.JWTSecret),
			Issuer: cfg.Auth.Issuer,
		}, auditLog),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("version", cfg.Version))
		errCh <- app.Listen(addr)
	}()

	reason := "signal"
	select {
	case <-ctx.Done():
	case err := <-errCh:
		reason = "listener stopped"
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	auditLog.SystemShutdown(context.Background(), reason)
	if shutdownTracing != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}
}

// newAuditLogger writes the trail to the rotating file and, with a
// database, to the append-only security_events table.
func newAuditLogger(cfg *config.AppConfig, db *sql.DB, redactor audit.Redactor, log *zap.Logger) *audit.Logger {
	sinks := []audit.Sink{audit.NewFileSink(audit.FileConfig{
		Path:       cfg.Audit.FilePath,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		MaxAgeDays: cfg.Audit.MaxAgeDays,
		Compress:   true,
	})}
	if db != nil {
		sinks = append(sinks, postgres.NewSecurityEventPostgres(db))
	}
	return audit.New(log, redactor, sinks...)
}

func newApprovalStores(db *sql.DB) (repository.ApprovalRepository, repository.QuarantineRepository) {
	if db == nil {
		return memory.NewApprovalRepository(), memory.NewQuarantineRepository()
	}
	return postgres.NewApprovalPostgres(db), postgres.NewQuarantinePostgres(db)
}

// newSessionRepository picks the session store. Redis lets several
// instances share sessions and action counters.
func newSessionRepository(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (repository.SessionRepository, func()) {
	if cfg.Session.Store != "redis" {
		return memory.NewSessionRepository(cfg.Session.CleanupInterval), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return redisstore.NewSessionRepository(rdb), func() { _ = rdb.Close() }
}

// newResolver reads documents from local roots when configured, otherwise
// from object storage under the document prefix.
func newResolver(cfg *config.AppConfig, store storage.Storage, cb *breaker.Breaker) (document.Resolver, error) {
	if len(cfg.DocumentRoots) > 0 {
		fs, err := document.NewFSResolver(cfg.DocumentRoots...)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
	return document.NewObjectResolver(store, cfg.DocumentPrefix, cfg.Limits.MaxBytes, cb), nil
}
