// Package cache keeps the most recently fetched full registry list in redis
// so read paths can decorate rows with fresh registration flags without
// paying for another paging pass.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"provdir/internal/registry"
	"provdir/pkg/platform/sentinel"
)

const listKey = "provdir:registry:list"

// RedisListCache stores the last full list snapshot with a TTL.
type RedisListCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisListCache(client *goredis.Client, ttl time.Duration) *RedisListCache {
	return &RedisListCache{client: client, ttl: ttl}
}

// Get returns the cached list, or sentinel.ErrNotFound when the cache is
// cold or expired.
func (c *RedisListCache) Get(ctx context.Context) ([]registry.ListItem, error) {
	raw, err := c.client.Get(ctx, listKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get cached list: %w", err)
	}
	var items []registry.ListItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cached list: %w", err)
	}
	return items, nil
}

// Put replaces the cached list.
func (c *RedisListCache) Put(ctx context.Context, items []registry.ListItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode list: %w", err)
	}
	if err := c.client.Set(ctx, listKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("put cached list: %w", err)
	}
	return nil
}
