// Command analytics consumes access-log visits from a Redis stream and
// counts clicks against their links. It runs alongside the HTTP server
// for deployments that record redirects at the edge instead of in-process.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tinylink-dev/tinylink/internal/analytics"
	"github.com/tinylink-dev/tinylink/internal/config"
	"github.com/tinylink-dev/tinylink/internal/linker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if env := os.Getenv("APP_ENV"); env == "development" || env == "test" {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("no .env file found.")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if !cfg.Cache.Enabled() {
		return fmt.Errorf("REDIS_ADDR is required for the analytics consumer")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	repo := linker.NewRepository(pool)
	consumer := analytics.NewConsumer(rdb, repo, &analytics.ConsumerConfig{
		Stream: cfg.Analytics.Stream,
		Logger: logger,
	})

	logger.Info("analytics consumer starting", "stream", cfg.Analytics.Stream)
	return consumer.Run(ctx)
}
