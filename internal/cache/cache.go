// Package cache keeps recently rendered image variants in Redis.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/blake3"

	"github.com/timkrebs/imageweb/internal/commands"
	"github.com/timkrebs/imageweb/internal/metrics"
)

// ErrMiss is returned when a variant is not cached
var ErrMiss = errors.New("cache miss")

const keyPrefix = "imageweb:variant:"

// Entry is a cached rendered variant
type Entry struct {
	ContentType string
	Data        []byte
}

// Cache stores rendered variants as Redis hashes with a TTL
type Cache struct {
	client      *redis.Client
	metrics     *metrics.CacheMetrics
	ttl         time.Duration
	maxItemSize int64
}

// New creates a cache. Entries larger than maxItemSize bytes are not stored;
// zero disables the limit.
func New(client *redis.Client, ttl time.Duration, maxItemSize int64) *Cache {
	return &Cache{client: client, ttl: ttl, maxItemSize: maxItemSize}
}

// SetMetrics injects metrics collectors into the cache
func (c *Cache) SetMetrics(m *metrics.CacheMetrics) {
	c.metrics = m
}

// Key derives the variant key for a source path, the version (ETag) of the
// source it was rendered from, its commands and the culture their numbers
// were parsed in. The collection's canonical form makes the key independent
// of parameter order.
func Key(path, version string, cmds *commands.Collection, culture commands.Culture) string {
	sum := blake3.Sum256([]byte(path + "@" + version + "?" + cmds.String() + "#" + culture.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns a cached variant or ErrMiss
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	start := time.Now()
	values, err := c.client.HGetAll(ctx, keyPrefix+key).Result()
	if c.metrics != nil {
		metrics.RecordDuration(start, c.metrics.LookupDuration.WithLabelValues("redis"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	data, ok := values["data"]
	if !ok {
		if c.metrics != nil {
			c.metrics.Misses.WithLabelValues("redis").Inc()
		}
		return nil, ErrMiss
	}
	if c.metrics != nil {
		c.metrics.Hits.WithLabelValues("redis").Inc()
	}
	return &Entry{ContentType: values["content_type"], Data: []byte(data)}, nil
}

// Set stores a variant. Oversized entries are skipped silently.
func (c *Cache) Set(ctx context.Context, key string, entry *Entry) error {
	if c.maxItemSize > 0 && int64(len(entry.Data)) > c.maxItemSize {
		return nil
	}

	k := keyPrefix + key
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, "content_type", entry.ContentType, "data", entry.Data)
		pipe.Expire(ctx, k, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes a variant
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Health checks if Redis is reachable
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
