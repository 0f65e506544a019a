// Package cache provides an optional Redis-backed result cache keyed by
// the raw RPC query bytes a client sent, with in-flight request dedup so
// concurrent identical queries share one ranking pass.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/kestrelsearch/shardquery/internal/rpc"
	"github.com/kestrelsearch/shardquery/pkg/config"
	pkgredis "github.com/kestrelsearch/shardquery/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "shardquery:"

// ResultCache caches a shard's ranked result sets against the raw query
// bytes that produced them. The cache key is content-addressed, not
// structurally normalized: two byte-identical queries share a cache
// entry, but the binary grammar has no canonical form to normalize
// against (unlike the teacher's text query language).
type ResultCache struct {
	client *pkgredis.Client
	cfg    config.CacheConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps client with the TTL and key settings from cfg.
func New(client *pkgredis.Client, cfg config.CacheConfig) *ResultCache {
	return &ResultCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "result-cache"),
	}
}

// Get returns the cached result set for queryBytes, if present.
func (c *ResultCache) Get(ctx context.Context, queryBytes []byte) ([]rpc.Result, bool) {
	key := c.buildKey(queryBytes)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var results []rpc.Result
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return results, true
}

// Set stores results under queryBytes' key with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, queryBytes []byte, results []rpc.Result) {
	key := c.buildKey(queryBytes)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.TTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached results for queryBytes, computing and
// populating the cache on a miss. Concurrent callers with the same query
// bytes share one computeFn invocation via singleflight.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	queryBytes []byte,
	computeFn func() ([]rpc.Result, error),
) ([]rpc.Result, bool, error) {
	if results, ok := c.Get(ctx, queryBytes); ok {
		return results, true, nil
	}
	key := c.buildKey(queryBytes)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.Get(ctx, queryBytes); ok {
			return results, nil
		}
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, queryBytes, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]rpc.Result), false, nil
}

// Invalidate flushes every cached entry under this cache's key prefix.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit/miss counts.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) buildKey(queryBytes []byte) string {
	hash := sha256.Sum256(queryBytes)
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
