package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Metadata  MetadataConfig
	Safety    SafetyConfig
	Analytics AnalyticsConfig
	App       AppConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" required:"true"`
	Host            string        `envconfig:"SERVER_HOST" required:"true"`
	Domain          string        `envconfig:"SERVER_DOMAIN" required:"true"` // display domain, e.g. "tinylink.dev/"
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" required:"true"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" required:"true"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" required:"true"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" required:"true"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" required:"true"`
	Port     string `envconfig:"DB_PORT" required:"true"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	Name     string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSLMODE" required:"true"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" required:"true"`
	MinConns int32  `envconfig:"DB_MIN_CONNS" required:"true"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.User == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max connections must be positive")
	}
	if c.MinConns <= 0 {
		return fmt.Errorf("min connections must be positive")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
	}

	validSSLModes := map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if !validSSLModes[c.SSLMode] {
		return fmt.Errorf("invalid SSL mode: %s (must be one of: disable, require, verify-ca, verify-full)", c.SSLMode)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// CacheConfig holds Redis configuration. Redis is optional for the
// HTTP server (it only speeds up metadata scraping there) but required
// by the analytics consumer, which reads its stream.
type CacheConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	MetaTTL  time.Duration `envconfig:"REDIS_META_TTL" default:"24h"`
}

// Enabled reports whether a Redis address was configured.
func (c *CacheConfig) Enabled() bool { return c.Addr != "" }

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if c.DB < 0 {
		return fmt.Errorf("redis db must not be negative")
	}
	if c.MetaTTL <= 0 {
		return fmt.Errorf("metadata cache ttl must be positive")
	}
	return nil
}

// MetadataConfig holds enrichment fetcher configuration.
type MetadataConfig struct {
	Enabled      bool          `envconfig:"METADATA_ENABLED" default:"true"`
	FetchTimeout time.Duration `envconfig:"METADATA_FETCH_TIMEOUT" default:"2s"`
}

// Validate validates the metadata configuration.
func (c *MetadataConfig) Validate() error {
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	return nil
}

// SafetyConfig holds threat-lookup configuration. An empty API key
// disables the check.
type SafetyConfig struct {
	APIKey   string `envconfig:"SAFE_BROWSING_API_KEY"`
	Endpoint string `envconfig:"SAFE_BROWSING_ENDPOINT"`
}

// Enabled reports whether threat lookups are configured.
func (c *SafetyConfig) Enabled() bool { return c.APIKey != "" }

// AnalyticsConfig holds the stream consumer configuration.
type AnalyticsConfig struct {
	Stream string `envconfig:"ANALYTICS_STREAM" default:"analytics:access-logs"`
}

// Validate validates the analytics configuration.
func (c *AnalyticsConfig) Validate() error {
	if c.Stream == "" {
		return fmt.Errorf("stream name cannot be empty")
	}
	return nil
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" required:"true"`   // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" required:"true"` // debug, info, warn, error
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// Load loads configuration from environment variables only.
// (Do .env loading in the binaries for dev, not here.)
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load Server config: %w", err)
	}
	if err := cfg.Server.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Server config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to load Database config: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Database config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Cache); err != nil {
		return nil, fmt.Errorf("failed to load Cache config: %w", err)
	}
	if err := cfg.Cache.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Cache config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Metadata); err != nil {
		return nil, fmt.Errorf("failed to load Metadata config: %w", err)
	}
	if err := cfg.Metadata.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Metadata config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Safety); err != nil {
		return nil, fmt.Errorf("failed to load Safety config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Analytics); err != nil {
		return nil, fmt.Errorf("failed to load Analytics config: %w", err)
	}
	if err := cfg.Analytics.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Analytics config: %w", err)
	}

	if err := envconfig.Process("", &cfg.App); err != nil {
		return nil, fmt.Errorf("failed to load App config: %w", err)
	}
	if err := cfg.App.Validate(); err != nil {
		return nil, fmt.Errorf("invalid App config: %w", err)
	}

	return cfg, nil
}
