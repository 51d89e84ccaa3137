// Package cache holds the purchase-limit caches and their invalidation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"cannapos/internal/config"
	"cannapos/internal/core/entity"
	"cannapos/internal/domain/catalog"
)

var (
	_ catalog.LimitCache = (*RedisLimitCache)(nil)
	_ catalog.LimitCache = (*LocalLimitCache)(nil)
)

const limitKeyPrefix = "cannapos:limits:"

func limitKey(dispensaryID int64) string {
	return limitKeyPrefix + strconv.FormatInt(dispensaryID, 10)
}

// RedisLimitCache stores purchase limits as JSON under one key per dispensary.
type RedisLimitCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLimitCache connects to the configured redis server.
func NewRedisLimitCache(cfg config.RedisConfig) *RedisLimitCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisLimitCache{client: client, ttl: cfg.TTL}
}

// NewRedisLimitCacheFromClient wraps an existing client.
func NewRedisLimitCacheFromClient(client *redis.Client, ttl time.Duration) *RedisLimitCache {
	return &RedisLimitCache{client: client, ttl: ttl}
}

// Ping checks the connection.
func (c *RedisLimitCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisLimitCache) Close() error {
	return c.client.Close()
}

// Get implements catalog.LimitCache.
func (c *RedisLimitCache) Get(ctx context.Context, dispensaryID int64) ([]entity.PurchaseLimit, bool, error) {
	val, err := c.client.Get(ctx, limitKey(dispensaryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get limits: %w", err)
	}

	var limits []entity.PurchaseLimit
	if err := json.Unmarshal(val, &limits); err != nil {
		return nil, false, fmt.Errorf("decode cached limits: %w", err)
	}
	return limits, true, nil
}

// Set implements catalog.LimitCache.
func (c *RedisLimitCache) Set(ctx context.Context, dispensaryID int64, limits []entity.PurchaseLimit) error {
	payload, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("encode limits: %w", err)
	}
	return c.client.Set(ctx, limitKey(dispensaryID), payload, c.ttl).Err()
}

// Invalidate implements catalog.LimitCache.
func (c *RedisLimitCache) Invalidate(ctx context.Context, dispensaryID int64) error {
	return c.client.Del(ctx, limitKey(dispensaryID)).Err()
}

type localEntry struct {
	limits  []entity.PurchaseLimit
	expires time.Time
}

// LocalLimitCache keeps limits in process memory. Used when no redis
// server is configured.
type LocalLimitCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[int64]localEntry
	now  func() time.Time
}

// NewLocalLimitCache creates an in-process cache. A zero ttl never expires.
func NewLocalLimitCache(ttl time.Duration) *LocalLimitCache {
	return &LocalLimitCache{ttl: ttl, data: make(map[int64]localEntry), now: time.Now}
}

// Get implements catalog.LimitCache.
func (c *LocalLimitCache) Get(_ context.Context, dispensaryID int64) ([]entity.PurchaseLimit, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[dispensaryID]
	if !ok || (!e.expires.IsZero() && c.now().After(e.expires)) {
		return nil, false, nil
	}
	return append([]entity.PurchaseLimit(nil), e.limits...), true, nil
}

// Set implements catalog.LimitCache.
func (c *LocalLimitCache) Set(_ context.Context, dispensaryID int64, limits []entity.PurchaseLimit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := localEntry{limits: append([]entity.PurchaseLimit(nil), limits...)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.data[dispensaryID] = e
	return nil
}

// Invalidate implements catalog.LimitCache.
func (c *LocalLimitCache) Invalidate(_ context.Context, dispensaryID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, dispensaryID)
	return nil
}
