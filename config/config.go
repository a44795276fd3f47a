package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the development signing secret. It is rejected in production.
const DefaultJWTSecret = "your-secret-key-change-in-production"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Session       SessionConfig
	Google        GoogleConfig
	Access        AccessConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// SessionConfig holds the session credential settings
type SessionConfig struct {
	Secret      string
	Algorithm   string
	ExpireHours int
}

// GoogleConfig holds Google ID token verification settings
type GoogleConfig struct {
	ClientID     string
	Issuers      []string
	JWKSURL      string
	JWKSCacheTTL time.Duration
	HTTPTimeout  time.Duration
}

// AccessConfig holds the domain and admin allow-lists.
// Entries are trimmed and lower-cased at load time.
type AccessConfig struct {
	AllowedDomains   []string
	AdminEmails      []string
	SyncNamesOnLogin bool
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	FrontendURL string
}

// ObservabilityConfig holds logging and metrics configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// .env is optional; real environment variables win because godotenv never overrides them
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(),
		Session: SessionConfig{
			Secret:      getEnv("JWT_SECRET_KEY", DefaultJWTSecret),
			Algorithm:   getEnv("JWT_ALGORITHM", "HS256"),
			ExpireHours: getEnvAsInt("JWT_EXPIRE_HOURS", 24),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			Issuers:      getEnvAsList("GOOGLE_ISSUERS", []string{"accounts.google.com", "https://accounts.google.com"}, false),
			JWKSURL:      getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
			JWKSCacheTTL: getEnvAsDuration("GOOGLE_JWKS_CACHE_TTL", time.Hour),
			HTTPTimeout:  getEnvAsDuration("GOOGLE_HTTP_TIMEOUT", 10*time.Second),
		},
		Access: AccessConfig{
			AllowedDomains:   getEnvAsList("ALLOWED_DOMAINS", nil, true),
			AdminEmails:      getEnvAsList("ADMIN_EMAILS", nil, true),
			SyncNamesOnLogin: getEnvAsBool("SYNC_NAMES_ON_LOGIN", false),
		},
		CORS: CORSConfig{
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	switch c.Session.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported JWT algorithm %q: expected HS256, HS384 or HS512", c.Session.Algorithm)
	}
	if c.Session.ExpireHours <= 0 {
		return fmt.Errorf("JWT expire hours must be positive, got %d", c.Session.ExpireHours)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("JWT secret key is required")
	}
	if len(c.Google.Issuers) == 0 {
		return fmt.Errorf("at least one Google issuer is required")
	}

	if c.IsProduction() {
		if c.Session.Secret == DefaultJWTSecret {
			return fmt.Errorf("JWT_SECRET_KEY must be changed in production")
		}
		if c.Google.ClientID == "" {
			return fmt.Errorf("google client ID is required in production")
		}
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// SessionTTL returns the configured session lifetime
func (c *SessionConfig) SessionTTL() time.Duration {
	return time.Duration(c.ExpireHours) * time.Hour
}

// AllowedOrigins returns the CORS origins: the configured frontend plus local development hosts
func (c *CORSConfig) AllowedOrigins() []string {
	origins := []string{c.FrontendURL}
	for _, o := range []string{"http://localhost:3000", "https://localhost:3000"} {
		if o != c.FrontendURL {
			origins = append(origins, o)
		}
	}
	return origins
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}
	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "postgres")
	pool.Password = getEnv("DB_PASSWORD", "postgres")
	pool.Database = getEnv("DB_NAME", "identity")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from BACKEND_PORT or PORT (default: 8000)
func getPort() int {
	for _, key := range []string{"BACKEND_PORT", "PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma list, dropping blank entries.
// An unset variable yields defaultValue; a set but blank one yields an empty list.
func getEnvAsList(key string, defaultValue []string, lower bool) []string {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return SplitList(valueStr, lower)
}

// SplitList parses a comma-separated list, trimming entries and skipping blanks
func SplitList(s string, lower bool) []string {
	items := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lower {
			part = strings.ToLower(part)
		}
		items = append(items, part)
	}
	return items
}
