package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pageCacheKeyPrefix = "pop:page:"

// PageCache stores fetched search-result pages keyed by URL so repeated runs
// against the same catalog item within the TTL skip the upstream fetch API.
type PageCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewPageCache creates a page cache with the given TTL.
func NewPageCache(cache *RedisCache, ttl time.Duration) *PageCache {
	return &PageCache{cache: cache, ttl: ttl}
}

func pageCacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return pageCacheKeyPrefix + hex.EncodeToString(sum[:16])
}

// Get returns the cached page text for a URL. A cache miss returns
// ("", false, nil); only transport problems surface as errors.
func (c *PageCache) Get(ctx context.Context, url string) (string, bool, error) {
	text, err := c.cache.Client().Get(ctx, pageCacheKey(url)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("page cache get: %w", err)
	}
	return text, true, nil
}

// Set stores page text for a URL with the configured TTL.
func (c *PageCache) Set(ctx context.Context, url, text string) error {
	if err := c.cache.Client().Set(ctx, pageCacheKey(url), text, c.ttl).Err(); err != nil {
		return fmt.Errorf("page cache set: %w", err)
	}
	return nil
}
