package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/book-tracker/auth"
	"github.com/upb/book-tracker/config"
	"github.com/upb/book-tracker/handlers"
	"github.com/upb/book-tracker/internal/observability"
	"github.com/upb/book-tracker/middleware"
	"github.com/upb/book-tracker/repositories"
	"github.com/upb/book-tracker/repositories/postgres"
	"github.com/upb/book-tracker/services"
	"github.com/upb/book-tracker/services/audit"
	"github.com/upb/book-tracker/tokens"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Services
	Tokens         *tokens.Manager
	Audit          *audit.AuditService
	AuthService    *services.AuthService
	LibraryService *services.LibraryService

	// HTTP
	AuthHandler    *auth.Handler
	LibraryHandler *handlers.LibraryHandler
	HealthHandler  *handlers.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies connects to PostgreSQL and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := build(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithDB wires the application on an already opened database
func NewDependenciesWithDB(ctx context.Context, cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	return build(ctx, cfg, postgres.NewRepositoryFactoryWithDB(db, logger), logger)
}

func build(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := factory.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	deps.Repos = factory.NewRepositories()
	deps.TxManager = factory.GetTransactionManager()
	logger.Info("repositories initialized")

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics()
	}

	if err := deps.initServices(cfg); err != nil {
		return nil, err
	}
	deps.initHTTP()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	codec, err := tokens.NewCodec([]byte(cfg.Auth.JWTSecret), tokens.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	d.Tokens = tokens.NewManager(codec, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	var auditor services.AuthAuditor = services.NopAuditor{}
	if cfg.Audit.Enabled {
		d.Audit = audit.NewAuditService(d.Repos.AuthEvents, d.Logger, audit.Config{
			BufferSize:  cfg.Audit.BufferSize,
			WorkerCount: cfg.Audit.WorkerCount,
		})
		if err := d.Audit.Start(); err != nil {
			return fmt.Errorf("failed to start audit service: %w", err)
		}
		auditor = d.Audit
	} else {
		d.Logger.Warn("auth audit trail disabled")
	}

	d.AuthService = services.NewAuthService(
		d.Repos.Users,
		d.Tokens,
		services.NewBcryptHasher(cfg.Auth.BcryptCost),
		auditor,
		d.Metrics,
		d.Logger,
	)
	d.LibraryService = services.NewLibraryService(d.Repos, d.TxManager, d.Logger)
	return nil
}

func (d *Dependencies) initHTTP() {
	d.AuthHandler = auth.NewHandler(d.AuthService, d.Logger)
	d.LibraryHandler = handlers.NewLibraryHandler(d.LibraryService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AuthService, d.Logger)
}

// Close gracefully shuts down all dependencies. Pending audit events are
// flushed before the database closes.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		timeout := defaultShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil && !errors.Is(err, audit.ErrNotStarted) {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
