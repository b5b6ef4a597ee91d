package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tinylink-dev/tinylink/internal/config"
	"github.com/tinylink-dev/tinylink/internal/linker"
	"github.com/tinylink-dev/tinylink/internal/metadata"
	"github.com/tinylink-dev/tinylink/internal/safebrowsing"
	"github.com/tinylink-dev/tinylink/internal/server"
)

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DBPool  *pgxpool.Pool
	Redis   *redis.Client
	Server  *server.Server
	Handler *linker.Handler
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application", "env", cfg.App.Environment)

	// Connect to database
	dbPool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := linker.Migrate(ctx, dbPool); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis only accelerates metadata lookups here, so a missing or
	// unreachable instance downgrades the app rather than failing it.
	rdb := connectRedis(ctx, cfg, logger)

	// Setup application dependencies
	repo := linker.NewRepository(dbPool)
	svc := linker.NewService(repo, &linker.ServiceConfig{
		Metadata:      setupMetadata(cfg, rdb, logger),
		SafetyChecker: setupSafety(cfg),
		Logger:        logger,
	})
	handler := linker.NewHandler(linker.HandlerConfig{
		Service: svc,
		Logger:  logger,
		Domain:  cfg.Server.Domain,
	})

	// Create server
	srv := server.New(cfg, logger, handler)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"domain", cfg.Server.Domain,
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		DBPool:  dbPool,
		Redis:   rdb,
		Server:  srv,
		Handler: handler,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"domain", a.Config.Server.Domain,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err)
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Set pool configuration
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}

// connectRedis returns a Redis client, or nil if none is configured
// or reachable.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Cache.Enabled() {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without cache",
			"addr", cfg.Cache.Addr,
			"error", err,
		)
		_ = rdb.Close()
		return nil
	}

	logger.Info("redis connection established", "addr", cfg.Cache.Addr)
	return rdb
}

// setupMetadata builds the enrichment fetcher, cached when Redis is
// available. Returns nil when enrichment is disabled.
func setupMetadata(cfg *config.Config, rdb *redis.Client, logger *slog.Logger) metadata.Fetcher {
	if !cfg.Metadata.Enabled {
		return nil
	}

	fetcher := metadata.NewHTTPFetcher(&http.Client{Timeout: cfg.Metadata.FetchTimeout})
	if rdb == nil {
		return fetcher
	}
	return metadata.NewCachedFetcher(fetcher, rdb, cfg.Cache.MetaTTL, logger)
}

// setupSafety builds the threat checker. Returns nil when no API key
// is configured.
func setupSafety(cfg *config.Config) safebrowsing.Checker {
	if !cfg.Safety.Enabled() {
		return nil
	}

	var opts []safebrowsing.Option
	if cfg.Safety.Endpoint != "" {
		opts = append(opts, safebrowsing.WithEndpoint(cfg.Safety.Endpoint))
	}
	return safebrowsing.New(cfg.Safety.APIKey, opts...)
}
