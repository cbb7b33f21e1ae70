package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Cache is a thin JSON cache over Redis. A nil Cache or nil client is a
// no-op cache, so callers never need to branch on whether Redis is wired.
type Cache struct {
	RDB redis.Cmdable
}

func NewCache(rdb redis.Cmdable) *Cache { return &Cache{RDB: rdb} }

func (c *Cache) enabled() bool { return c != nil && c.RDB != nil }

// GetJSON decodes the value at key into out and reports whether it was present.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	b, err := c.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, key, string(b), ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if !c.enabled() {
		return nil
	}
	return c.RDB.Del(ctx, key).Err()
}

// MarkOnce claims key with SETNX. It returns true for the first caller only.
// Without Redis every call is first.
func (c *Cache) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !c.enabled() {
		return true, nil
	}
	return c.RDB.SetNX(ctx, key, "1", ttl).Result()
}
