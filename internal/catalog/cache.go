package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arvind-dev/backend-bazaar/internal/resilience"
)

// Cache wraps Redis helpers for JSON payloads. When a breaker is configured,
// a flapping Redis is skipped instead of slowing down every read.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *resilience.Breaker
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	var breaker *resilience.Breaker
	if client != nil {
		breaker = resilience.NewBreaker(10, 0.5, 15*time.Second).WithTarget("catalog_cache")
	}
	return &Cache{client: client, ttl: ttl, breaker: breaker}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	if !c.breaker.Allow(ctx) {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.breaker.Report(ctx, true)
			return false, nil
		}
		c.breaker.Report(ctx, false)
		return false, err
	}
	c.breaker.Report(ctx, true)
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	if !c.breaker.Allow(ctx) {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	err = c.client.Set(ctx, key, data, c.ttl).Err()
	c.breaker.Report(ctx, err == nil)
	return err
}

// Invalidate drops cached keys after a write.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	_ = c.client.Del(ctx, keys...).Err()
}
