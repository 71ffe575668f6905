package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Aeshi-Nero/Mind-Haven/internal/entity"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "cache").Logger()

const (
	feedGenKey    = "feed:gen"
	feedKeyPrefix = "feed:posts:"
)

func feedKey(gen int64) string {
	return feedKeyPrefix + strconv.FormatInt(gen, 10)
}

// FeedCache holds the serialized global feed keyed by generation. Invalidation bumps the
// generation, so a snapshot read before a write can only land under a key nobody reads again.
type FeedCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFeedCache(rdb *redis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{rdb: rdb, ttl: ttl}
}

// FeedGeneration returns the current generation. A missing counter is generation 0.
func (f *FeedCache) FeedGeneration(ctx context.Context) (int64, error) {
	gen, err := f.rdb.Get(ctx, feedGenKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read feed generation: %w", err)
	}
	return gen, nil
}

// GetFeed returns the feed cached for gen. ok is false on a cache miss.
func (f *FeedCache) GetFeed(ctx context.Context, gen int64) (posts []*entity.Post, ok bool, err error) {
	raw, err := f.rdb.Get(ctx, feedKey(gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Debug().Int64("generation", gen).Msg("Feed not found in cache")
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read feed cache: %w", err)
	}

	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, false, fmt.Errorf("decode feed cache: %w", err)
	}
	return posts, true, nil
}

func (f *FeedCache) SetFeed(ctx context.Context, gen int64, posts []*entity.Post) error {
	raw, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	if err := f.rdb.Set(ctx, feedKey(gen), raw, f.ttl).Err(); err != nil {
		return fmt.Errorf("write feed cache: %w", err)
	}
	return nil
}

// InvalidateFeed moves readers to a new generation. Old entries expire with their TTL.
func (f *FeedCache) InvalidateFeed(ctx context.Context) error {
	if err := f.rdb.Incr(ctx, feedGenKey).Err(); err != nil {
		return fmt.Errorf("invalidate feed cache: %w", err)
	}
	return nil
}

// NoopFeedCache is used when Redis is not configured; every read misses.
type NoopFeedCache struct{}

func (NoopFeedCache) FeedGeneration(context.Context) (int64, error)                { return 0, nil }
func (NoopFeedCache) GetFeed(context.Context, int64) ([]*entity.Post, bool, error) { return nil, false, nil }
func (NoopFeedCache) SetFeed(context.Context, int64, []*entity.Post) error         { return nil }
func (NoopFeedCache) InvalidateFeed(context.Context) error                         { return nil }
