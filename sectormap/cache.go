package sectormap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"daytrader/errs"
)

// SharedCache publishes and retrieves a DayCache through Redis so every
// Feature Materializer worker process for a given date shares one
// cross-sectional snapshot instead of recomputing it per worker (§4.5
// "builds the per-date cross-sectional cache once"; §9 resolves the
// in-process-vs-shared question in favor of Redis so multi-process
// materializer runs, not just multi-goroutine ones, share the cache).
// Grounded on the RedisCache shape in
// sawpanic-cryptorun's staging redis_cache.go, narrowed to the single
// (Get, Set) pair this package needs.
type SharedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSharedCache dials addr and verifies connectivity with a short-timeout
// PING, matching the teacher's "test connection at construction" pattern.
func NewSharedCache(addr string, ttl time.Duration) (*SharedCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errs.New(errs.Network, "sectormap.NewSharedCache", err)
	}
	return &SharedCache{client: client, ttl: ttl}, nil
}

func dayCacheKey(date int) string {
	return fmt.Sprintf("daytrader:daycache:%d", date)
}

// Put serializes cache as JSON and stores it under a per-date key.
func (c *SharedCache) Put(ctx context.Context, cache *DayCache) error {
	data, err := json.Marshal(cache)
	if err != nil {
		return errs.New(errs.Parse, "sectormap.SharedCache.Put", err)
	}
	if err := c.client.Set(ctx, dayCacheKey(cache.Date), data, c.ttl).Err(); err != nil {
		return errs.New(errs.Network, "sectormap.SharedCache.Put", err)
	}
	return nil
}

// Get retrieves the DayCache for date. found is false on a cache miss
// (not an error) — callers fall back to building the cache themselves via
// Build.
func (c *SharedCache) Get(ctx context.Context, date int) (cache *DayCache, found bool, err error) {
	val, getErr := c.client.Get(ctx, dayCacheKey(date)).Result()
	if getErr == redis.Nil {
		return nil, false, nil
	}
	if getErr != nil {
		return nil, false, errs.New(errs.Network, "sectormap.SharedCache.Get", getErr)
	}
	var out DayCache
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, false, errs.New(errs.Parse, "sectormap.SharedCache.Get", err)
	}
	return &out, true, nil
}

// Close releases the underlying connection pool.
func (c *SharedCache) Close() error {
	return c.client.Close()
}
