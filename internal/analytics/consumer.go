package analytics

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultStream is the Redis stream the access-log pipeline writes to.
	DefaultStream = "analytics:access-logs"

	// DefaultGroup is the consumer group tracking which entries have
	// been counted. The group's delivery state is what lets a restarted
	// consumer resume instead of replaying the whole stream.
	DefaultGroup = "analytics:clicks"

	// LineField is the stream entry field holding the raw log line.
	LineField = "line"

	readBlock = 5 * time.Second
	readBatch = 100
)

// Incrementer is the click-counting slice of the link store. The
// original URL the increment returns is irrelevant here.
type Incrementer interface {
	ResolveAndIncrement(ctx context.Context, id string) (string, error)
}

// Consumer reads access-log lines off a Redis stream and counts each
// visit against its link. Entries are read through a consumer group and
// acknowledged once handled, so each visit is delivered at least once
// and a restart picks up where the group left off.
type Consumer struct {
	rdb      *redis.Client
	store    Incrementer
	stream   string
	group    string
	consumer string
	logger   *slog.Logger
}

// ConsumerConfig holds configuration for the consumer.
type ConsumerConfig struct {
	Stream   string // defaults to DefaultStream
	Group    string // defaults to DefaultGroup
	Consumer string // defaults to the hostname
	Logger   *slog.Logger
}

// NewConsumer creates a Consumer reading from rdb and counting against store.
func NewConsumer(rdb *redis.Client, store Incrementer, cfg *ConsumerConfig) *Consumer {
	if cfg == nil {
		cfg = &ConsumerConfig{}
	}

	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}

	group := cfg.Group
	if group == "" {
		group = DefaultGroup
	}

	consumer := cfg.Consumer
	if consumer == "" {
		if host, err := os.Hostname(); err == nil {
			consumer = host
		} else {
			consumer = "analytics"
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		rdb:      rdb,
		store:    store,
		stream:   stream,
		group:    group,
		consumer: consumer,
		logger:   logger,
	}
}

// Run consumes the stream until ctx is cancelled. It first drains
// entries that were delivered to this consumer but never acknowledged,
// then blocks on new ones. A bad line or a failed increment is logged,
// acknowledged and dropped; it never stops the consumer.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "analytics consumer starting",
		"stream", c.stream,
		"group", c.group,
		"consumer", c.consumer,
	)

	// "0" asks for this consumer's pending entries; ">" for new ones.
	cursor := "0"

	for {
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, cursor},
			Count:    readBatch,
			Block:    readBlock,
		}).Result()

		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.logger.InfoContext(ctx, "analytics consumer stopping")
			return nil
		case errors.Is(err, redis.Nil):
			// Block timeout with nothing to read.
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			c.logger.ErrorContext(ctx, "stream read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		handled := 0
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				handled++

				line, ok := msg.Values[LineField].(string)
				if !ok {
					c.logger.WarnContext(ctx, "stream entry missing line field", "entry_id", msg.ID)
				} else {
					c.handleLine(ctx, line)
				}

				// Ack unconditionally: dropped lines are dropped by
				// policy, not retried.
				if err := c.rdb.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
					c.logger.WarnContext(ctx, "failed to ack stream entry",
						"entry_id", msg.ID,
						"error", err,
					)
				}
			}
		}

		// The pending backlog is exhausted once a "0" read comes back
		// empty; switch to waiting for new entries.
		if cursor == "0" && handled == 0 {
			cursor = ">"
		}
	}
}

// ensureGroup creates the consumer group at the start of the stream,
// tolerating a group that already exists.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// handleLine parses one log line and counts the visit. Failures are
// logged and swallowed.
func (c *Consumer) handleLine(ctx context.Context, line string) {
	visit, err := ParseVisit(line)
	if err != nil {
		c.logger.WarnContext(ctx, "dropping unparsable log line",
			"line", line,
			"error", err,
		)
		return
	}

	if _, err := c.store.ResolveAndIncrement(ctx, visit.LinkID); err != nil {
		c.logger.WarnContext(ctx, "failed to count visit",
			"link_id", visit.LinkID,
			"source_ip", visit.SourceIP,
			"error", err,
		)
		return
	}

	c.logger.DebugContext(ctx, "visit counted",
		"link_id", visit.LinkID,
		"status_code", visit.StatusCode,
	)
}
