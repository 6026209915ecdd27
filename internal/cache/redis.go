// Package cache keeps a read-aside copy of the newest-first post feed in
// Redis. The database stays the source of truth: every read falls back to it
// on a miss or a Redis failure, and every committed post mutation drops the
// cached copy.
//
// READ-ASIDE RACE:
// A reader that misses loads the feed from the database and then stores it.
// If a writer commits and invalidates in between, a plain SET would put the
// pre-commit feed back and hide the new post until the TTL runs out. So every
// invalidation bumps a generation counter, the reader notes the generation
// before its database read, and Set only writes while that generation is
// still current (WATCH on the counter, SET inside MULTI/EXEC).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakif/inkwell/internal/metrics"
	"github.com/sakif/inkwell/internal/model"
)

// FeedKey is the Redis key holding the JSON-encoded feed.
const FeedKey = "inkwell:feed:newest"

// GenerationKey counts feed invalidations.
const GenerationKey = "inkwell:feed:generation"

// DefaultTTL bounds how stale a cached feed can get if an invalidation is
// lost.
const DefaultTTL = 30 * time.Second

// metricsHook counts failed commands. redis.Nil is a miss, not a failure.
type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			metrics.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, redis.TxFailedErr) {
			metrics.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient connects to Redis. addr is either a redis:// URL or a bare
// host:port. The connection is checked with PING before returning.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("cache: parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: pinging redis: %w", err)
	}
	return client, nil
}

// FeedCache stores the global newest-first feed. A nil *FeedCache is valid
// and behaves as an always-empty cache, so callers need no "is caching on"
// checks.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewFeedCache wraps client. A non-positive ttl means DefaultTTL.
func NewFeedCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *FeedCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FeedCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached feed. ok is false on a miss and on any Redis or
// decoding failure; failures are logged and counted, never returned.
func (c *FeedCache) Get(ctx context.Context) (posts []model.Post, ok bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, FeedKey).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.FeedCache.WithLabelValues(metrics.CacheMiss).Inc()
		return nil, false
	}
	if err != nil {
		metrics.FeedCache.WithLabelValues(metrics.CacheError).Inc()
		c.logger.Warn("feed cache read failed", slog.String("error", err.Error()))
		return nil, false
	}

	if err := json.Unmarshal(raw, &posts); err != nil {
		metrics.FeedCache.WithLabelValues(metrics.CacheError).Inc()
		c.logger.Warn("feed cache entry is corrupt", slog.String("error", err.Error()))
		return nil, false
	}

	metrics.FeedCache.WithLabelValues(metrics.CacheHit).Inc()
	return posts, true
}

// errStaleGeneration aborts a Set whose generation was overtaken.
var errStaleGeneration = errors.New("cache: feed generation changed")

// Generation returns the current invalidation count. Read it before loading
// the feed from the database and hand it to Set. ok is false when Redis
// cannot be read; the caller should then skip Set.
func (c *FeedCache) Generation(ctx context.Context) (gen int64, ok bool) {
	if c == nil {
		return 0, false
	}

	gen, err := c.client.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.logger.Warn("feed generation read failed", slog.String("error", err.Error()))
		return 0, false
	}
	return gen, true
}

// Set stores posts with the cache's TTL, unless the feed was invalidated
// after gen was read. Best effort: failures are logged.
func (c *FeedCache) Set(ctx context.Context, gen int64, posts []model.Post) {
	if c == nil {
		return
	}

	b, err := json.Marshal(posts)
	if err != nil {
		c.logger.Warn("encoding feed for cache failed", slog.String("error", err.Error()))
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, GenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, FeedKey, b, c.ttl)
			return nil
		})
		return err
	}, GenerationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("feed changed while loading, not caching", slog.Int64("generation", gen))
	default:
		c.logger.Warn("feed cache write failed", slog.String("error", err.Error()))
	}
}

// Invalidate bumps the generation and drops the cached feed in one
// transaction. Called after every committed post mutation; a failure is
// logged and the TTL eventually heals it.
func (c *FeedCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, FeedKey)
		return nil
	})
	if err != nil {
		c.logger.Warn("feed cache invalidation failed", slog.String("error", err.Error()))
	}
}
