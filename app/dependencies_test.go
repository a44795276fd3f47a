package app

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/identity-gateway/config"
	"github.com/upb/identity-gateway/internal/observability"
	"github.com/upb/identity-gateway/repositories/postgres"
	"go.uber.org/zap/zaptest"
)

func TestNewDependenciesWithFactory(t *testing.T) {
	t.Run("wires every component", func(t *testing.T) {
		ctx := context.Background()
		logger := zaptest.NewLogger(t)

		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnResult(sqlmock.NewResult(0, 0))

		factory := postgres.NewRepositoryFactoryFromDB(postgres.Wrap(sqlDB, logger), logger)
		deps, err := NewDependenciesWithFactory(ctx, testConfig(t), factory, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Accounts)
		assert.NotNil(t, deps.TxManager)
		assert.NotNil(t, deps.Verifier)
		assert.NotNil(t, deps.Sessions)
		assert.NotNil(t, deps.AuthService)
		assert.NotNil(t, deps.UserService)
		assert.NotNil(t, deps.SessionMiddleware)
		assert.NotNil(t, deps.AuthHandler)
		assert.NotNil(t, deps.UserHandler)
		assert.NotNil(t, deps.HealthHandler)

		assert.Nil(t, deps.Registry)
		assert.IsType(t, observability.NopCollector{}, deps.Metrics)

		// no admins configured, so seeding touches nothing
		assert.Equal(t, 0, deps.SeedAdmins(ctx))

		mock.ExpectClose()
		assert.NoError(t, deps.Close(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("registers prometheus metrics when enabled", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		cfg := testConfig(t)
		cfg.Observability.MetricsEnabled = true

		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnResult(sqlmock.NewResult(0, 0))

		factory := postgres.NewRepositoryFactoryFromDB(postgres.Wrap(sqlDB, logger), logger)
		deps, err := NewDependenciesWithFactory(context.Background(), cfg, factory, logger)
		require.NoError(t, err)

		require.NotNil(t, deps.Registry)
		assert.IsType(t, &observability.Collector{}, deps.Metrics)

		families, err := deps.Registry.Gather()
		require.NoError(t, err)
		assert.NotEmpty(t, families)
	})

	t.Run("schema failure", func(t *testing.T) {
		logger := zaptest.NewLogger(t)

		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnError(assert.AnError)

		factory := postgres.NewRepositoryFactoryFromDB(postgres.Wrap(sqlDB, logger), logger)
		deps, err := NewDependenciesWithFactory(context.Background(), testConfig(t), factory, logger)
		assert.Nil(t, deps)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize database")
	})

	t.Run("unsupported session algorithm", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		cfg := testConfig(t)
		cfg.Session.Algorithm = "RS256"

		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnResult(sqlmock.NewResult(0, 0))

		factory := postgres.NewRepositoryFactoryFromDB(postgres.Wrap(sqlDB, logger), logger)
		_, err = NewDependenciesWithFactory(context.Background(), cfg, factory, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize identity")
	})
}

func TestNewDependencies_DatabaseUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1

	deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to initialize database")
}

// Test helpers

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: config.DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "identity",
			Password:        "identity",
			Database:        "identity_test",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Session: config.SessionConfig{
			Secret:      "test-secret",
			Algorithm:   "HS256",
			ExpireHours: 24,
		},
		Google: config.GoogleConfig{
			ClientID:     "1234.apps.googleusercontent.com",
			Issuers:      []string{"accounts.google.com", "https://accounts.google.com"},
			JWKSURL:      "http://127.0.0.1:1/certs",
			JWKSCacheTTL: time.Hour,
			HTTPTimeout:  time.Second,
		},
		Access: config.AccessConfig{
			AllowedDomains: []string{"upb.edu.co"},
		},
		CORS: config.CORSConfig{FrontendURL: "http://localhost:3000"},
		Observability: config.ObservabilityConfig{
			LogLevel:       "debug",
			LogFormat:      "json",
			MetricsEnabled: false,
		},
	}
}
