package metadata

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultCacheTTL is how long scraped details stay cached. Pages
	// change slowly relative to how often the same URL gets shortened.
	DefaultCacheTTL = 24 * time.Hour

	cacheKeyPrefix = "meta:"
)

// CachedFetcher wraps a Fetcher with a Redis-backed cache so repeated
// shortenings of the same URL skip the scrape. Cache failures degrade
// to fetching directly; they are never surfaced.
type CachedFetcher struct {
	inner  Fetcher
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedFetcher wraps inner with a cache on rdb. A non-positive ttl
// falls back to DefaultCacheTTL.
func NewCachedFetcher(inner Fetcher, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedFetcher) Fetch(ctx context.Context, pageURL string) (Details, error) {
	key := cacheKeyPrefix + pageURL

	if cached, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var details Details
		if err := json.Unmarshal(cached, &details); err == nil {
			return details, nil
		}
		// A stale or corrupt entry falls through to a fresh fetch.
	}

	details, err := c.inner.Fetch(ctx, pageURL)
	if err != nil {
		return Details{}, err
	}

	if encoded, err := json.Marshal(details); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.DebugContext(ctx, "metadata cache write failed",
				"url", pageURL,
				"error", err,
			)
		}
	}

	return details, nil
}
