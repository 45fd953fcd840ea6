package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a thin JSON read cache in front of hot listing endpoints.
// A nil *Cache is valid and every method on it is a no-op, so callers
// never branch on whether redis is configured.
type Cache struct {
	client *redis.Client
	log    *zap.Logger
}

func New(addr string, log *zap.Logger) *Cache {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis unavailable, cache disabled", zap.String("addr", addr), zap.Error(err))
		return nil
	}

	log.Info("redis connected", zap.String("addr", addr))
	return &Cache{client: client, log: log}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.log.Warn("cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateUser drops every cached listing for a user after a mutation.
func (c *Cache) InvalidateUser(ctx context.Context, userID fmt.Stringer) {
	if c == nil {
		return
	}
	pattern := "corex:" + userID.String() + ":*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.log.Warn("cache scan failed", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.log.Warn("cache delete failed", zap.Error(err))
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// GoalsKey is the cache key for a user's goal listing.
func GoalsKey(userID fmt.Stringer) string {
	return "corex:" + userID.String() + ":goals"
}
