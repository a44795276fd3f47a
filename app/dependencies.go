package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/upb/identity-gateway/auth"
	"github.com/upb/identity-gateway/config"
	"github.com/upb/identity-gateway/googleid"
	"github.com/upb/identity-gateway/handlers"
	"github.com/upb/identity-gateway/internal/observability"
	"github.com/upb/identity-gateway/middleware"
	"github.com/upb/identity-gateway/repositories"
	"github.com/upb/identity-gateway/repositories/postgres"
	"github.com/upb/identity-gateway/services"
	"github.com/upb/identity-gateway/session"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Accounts  repositories.AccountRepository
	TxManager repositories.TransactionManager

	// Identity
	KeySource *googleid.JWKSKeySource
	Verifier  *googleid.Verifier
	Sessions  *session.Codec
	Policy    *services.AccessPolicy

	// Services
	AuthService *services.AuthService
	UserService *services.UserService
	AdminSeeder *services.AdminSeeder

	// Observability. Registry is nil when metrics are disabled.
	Registry *prometheus.Registry
	Metrics  observability.MetricsCollector

	// HTTP
	SessionMiddleware *middleware.SessionMiddleware
	AuthHandler       *auth.Handler
	UserHandler       *handlers.UserHandler
	HealthHandler     *handlers.HealthHandler
}

// NewDependencies opens the database and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires dependencies over an already opened repository factory
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.DB.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initMetrics(cfg)

	if err := deps.initIdentity(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize identity: %w", err)
	}

	deps.initServices(cfg)
	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Accounts = repos.Accounts
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		d.Metrics = observability.NopCollector{}
		return
	}

	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewDBStatsCollector(d.DB.DB, "identity_gateway"),
	)
	d.Metrics = observability.NewCollector(d.Registry)
}

func (d *Dependencies) initIdentity(cfg *config.Config) error {
	if cfg.Google.ClientID == "" {
		d.Logger.Warn("GOOGLE_CLIENT_ID not set, every login will be rejected")
	}

	d.KeySource = googleid.NewJWKSKeySource(googleid.JWKSConfig{
		URL:         cfg.Google.JWKSURL,
		CacheTTL:    cfg.Google.JWKSCacheTTL,
		HTTPTimeout: cfg.Google.HTTPTimeout,
	})
	d.Verifier = googleid.NewVerifier(googleid.Config{
		ClientID: cfg.Google.ClientID,
		Issuers:  cfg.Google.Issuers,
	}, d.KeySource)

	codec, err := session.NewCodec(session.Config{
		Secret:    cfg.Session.Secret,
		Algorithm: cfg.Session.Algorithm,
		TTL:       cfg.Session.SessionTTL(),
	})
	if err != nil {
		return err
	}
	d.Sessions = codec

	d.Policy = services.NewAccessPolicy(cfg.Access.AllowedDomains, cfg.Access.AdminEmails)
	if len(cfg.Access.AllowedDomains) == 0 {
		d.Logger.Warn("ALLOWED_DOMAINS is empty, every email domain may sign in")
	}
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	resolver := services.NewAccountResolver(d.Accounts, d.Policy, d.Logger, services.ResolverOptions{
		SyncNamesOnLogin: cfg.Access.SyncNamesOnLogin,
	})

	d.AuthService = services.NewAuthService(d.Verifier, d.Policy, resolver, d.Sessions, cfg.Session.SessionTTL(), d.Logger)
	d.UserService = services.NewUserService(d.Accounts, d.TxManager, d.Logger)
	d.AdminSeeder = services.NewAdminSeeder(d.Accounts, d.TxManager, d.Policy, d.Logger)
}

func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.SessionMiddleware = middleware.NewSessionMiddleware(d.Sessions, d.Accounts, d.Metrics, d.Logger)
	d.AuthHandler = auth.NewHandler(d.AuthService, auth.CookieConfig{
		Secure: cfg.IsProduction(),
	}, d.Metrics, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.UserService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, cfg.Environment, d.Logger)
}

// SeedAdmins ensures every configured admin email has an admin account
func (d *Dependencies) SeedAdmins(ctx context.Context) int {
	return d.AdminSeeder.Seed(ctx)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
