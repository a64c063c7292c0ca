package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by ItemCache.Get when the item is not cached.
var ErrCacheMiss = errors.New("cache miss")

// ItemCache caches catalog items. Prices change rarely, so a short TTL is enough.
type ItemCache interface {
	Get(ctx context.Context, itemID string) (models.Item, error)
	Set(ctx context.Context, item models.Item) error
}

type RedisItemCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisItemCache(client *redis.Client, ttl time.Duration) ItemCache {
	return &RedisItemCache{client: client, ttl: defaultDuration(ttl, time.Minute)}
}

func itemKey(itemID string) string {
	return "catalog:item:" + itemID
}

func (r *RedisItemCache) Get(ctx context.Context, itemID string) (models.Item, error) {
	raw, err := r.client.Get(ctx, itemKey(itemID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Item{}, ErrCacheMiss
	}
	if err != nil {
		return models.Item{}, err
	}
	var item models.Item
	if err = json.Unmarshal(raw, &item); err != nil {
		return models.Item{}, err
	}
	return item, nil
}

func (r *RedisItemCache) Set(ctx context.Context, item models.Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, itemKey(item.ID), raw, r.ttl).Err()
}
