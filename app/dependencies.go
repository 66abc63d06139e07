package app

import (
	"context"
	"fmt"
	"time"

	"github.com/edulytics/portal/clients/backend"
	"github.com/edulytics/portal/config"
	"github.com/edulytics/portal/handlers"
	"github.com/edulytics/portal/middleware"
	"github.com/edulytics/portal/repositories"
	"github.com/edulytics/portal/repositories/memory"
	"github.com/edulytics/portal/repositories/postgres"
	redisstore "github.com/edulytics/portal/repositories/redis"
	"github.com/edulytics/portal/repositories/sqlite"
	"github.com/edulytics/portal/services/audit"
	"github.com/edulytics/portal/services/credentials"
	"github.com/edulytics/portal/services/gate"
	"github.com/edulytics/portal/services/preferences"
	"github.com/edulytics/portal/services/profiles"
	"go.uber.org/zap"
)

// memoryAuditCapacity bounds the in-process audit trail
const memoryAuditCapacity = 10000

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Repository Factory, set when any PostgreSQL pool is in use
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Profiles  repositories.ProfileStore
	AuditLogs repositories.AuditRepository

	// Services
	Backend      *backend.Client
	Credentials  *credentials.Store
	Gate         *gate.Gate // nil when the developer gate is disabled
	Registry     *profiles.Registry
	AuditService *audit.AuditService
	Preferences  *preferences.Service

	// Middleware
	ProfileMiddleware *middleware.ProfileMiddleware
	GuardMiddleware   *middleware.GuardMiddleware

	// Handlers
	SessionHandler      *handlers.SessionHandler
	AdminSessionHandler *handlers.AdminSessionHandler
	GateHandler         *handlers.GateHandler
	ViewHandler         *handlers.ViewHandler
	SettingsHandler     *handlers.SettingsHandler
	AdminConsoleHandler *handlers.AdminConsoleHandler
	HealthHandler       *handlers.HealthHandler

	healthChecks map[string]handlers.HealthChecker
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:       cfg,
		Logger:       logger,
		healthChecks: make(map[string]handlers.HealthChecker),
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := deps.initAudit(ctx, cfg); err != nil {
		deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize audit: %w", err)
	}

	deps.initBackend(cfg)

	if err := deps.initServices(cfg); err != nil {
		deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("demo_auth", cfg.Auth.DemoAuthEnabled),
		zap.Bool("developer_gate", cfg.Auth.DeveloperGateEnabled))
	return deps, nil
}

// initStorage opens the profile store selected by STORAGE_DRIVER
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		d.Profiles = memory.NewProfileStore()

	case config.StorageRedis:
		client, err := redisstore.NewClient(ctx, cfg.Storage.RedisURL)
		if err != nil {
			return err
		}
		d.Profiles = redisstore.NewProfileStore(client, redisstore.Options{TTL: cfg.Storage.RedisTTL}, d.Logger)

	case config.StoragePostgres:
		factory, err := postgres.NewRepositoryFactory(cfg.Storage.Database, cfg.AuditDatabase, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		if err := factory.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		repos := factory.NewRepositories()
		d.Profiles = repos.Profiles
		d.AuditLogs = repos.AuditLogs

	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.Profiles = store

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	d.healthChecks["profile_store"] = d.Profiles
	d.Logger.Info("profile store initialized", zap.String("driver", cfg.Storage.Driver))
	return nil
}

// initAudit picks the audit repository: the PostgreSQL one when a pool is
// configured for it, otherwise a bounded in-memory trail
func (d *Dependencies) initAudit(ctx context.Context, cfg *config.Config) error {
	if d.AuditLogs == nil && cfg.AuditDatabase != nil {
		factory, err := postgres.NewRepositoryFactory(*cfg.AuditDatabase, nil, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to open audit database: %w", err)
		}
		d.RepoFactory = factory
		if err := factory.InitAuditSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize audit schema: %w", err)
		}
		d.AuditLogs = factory.NewRepositories().AuditLogs
	}

	if d.RepoFactory != nil {
		d.healthChecks["database"] = d.RepoFactory.GetDB()
	}
	if d.AuditLogs == nil {
		d.AuditLogs = memory.NewAuditRepository(memoryAuditCapacity)
		d.Logger.Info("audit trail kept in memory", zap.Int("capacity", memoryAuditCapacity))
	}

	d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.DefaultConfig())
	return nil
}

func (d *Dependencies) initBackend(cfg *config.Config) {
	d.Backend = backend.NewClient(cfg.Backend, d.Logger)
	d.Logger.Info("backend client initialized", zap.String("base_url", d.Backend.BaseURL()))
}

// initServices builds the session registry and starts the background workers
func (d *Dependencies) initServices(cfg *config.Config) error {
	d.Credentials = credentials.NewDefaultStore()

	if cfg.Auth.DeveloperGateEnabled {
		d.Gate = gate.New(gate.Config{
			NameAnswer:  cfg.Auth.GateNameAnswer,
			PlaceAnswer: cfg.Auth.GatePlaceAnswer,
		})
	}

	d.Registry = profiles.NewRegistry(d.Profiles, d.Credentials, d.Backend, profiles.Config{
		IdleTTL:     cfg.Auth.ProfileIdleTTL,
		DemoEnabled: cfg.Auth.DemoAuthEnabled,
	}, d.Logger)
	d.Preferences = preferences.NewService(d.Profiles, d.Logger)

	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	if err := d.Registry.Start(); err != nil {
		_ = d.AuditService.Stop(time.Second)
		return fmt.Errorf("failed to start profile registry: %w", err)
	}
	return nil
}

// initHTTP builds the middleware and handlers
func (d *Dependencies) initHTTP(cfg *config.Config) {
	signer := middleware.NewProfileSigner(cfg.Auth.ProfileSecret)
	d.ProfileMiddleware = middleware.NewProfileMiddleware(signer, d.Registry, cfg.Auth, d.Logger)
	d.GuardMiddleware = middleware.NewGuardMiddleware(cfg.Auth.GuardSettleTimeout, d.AuditService, d.Logger)

	d.SessionHandler = handlers.NewSessionHandler(d.AuditService, d.Logger)
	d.AdminSessionHandler = handlers.NewAdminSessionHandler(d.AuditService, d.Logger)
	d.GateHandler = handlers.NewGateHandler(d.Gate, d.AuditService, d.Logger)
	d.ViewHandler = handlers.NewViewHandler(d.Logger)
	d.SettingsHandler = handlers.NewSettingsHandler(d.Preferences, d.Logger)
	d.AdminConsoleHandler = handlers.NewAdminConsoleHandler(d.Backend, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.healthChecks, d.AuditService, d.Registry.Len, d.Logger)
}

func (d *Dependencies) closeStorage() []error {
	var errs []error
	if d.Profiles != nil {
		if err := d.Profiles.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close profile store: %w", err))
		}
	}
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}
	return errs
}

// Close gracefully shuts down all dependencies. Pending audit events are
// flushed before the stores close.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	var errs []error

	if d.Registry != nil {
		if err := d.Registry.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop profile registry: %w", err))
		}
	}
	if d.AuditService != nil {
		if err := d.AuditService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	errs = append(errs, d.closeStorage()...)

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
