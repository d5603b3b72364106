package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mookka:search:"

// RedisBackend stores JSON-encoded entries in Redis with the cache TTL. The
// Redis expiry only bounds storage; freshness is judged on CreatedAt.
type RedisBackend[V any] struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend[V any](client *redis.Client, namespace string) *RedisBackend[V] {
	return &RedisBackend[V]{client: client, prefix: redisKeyPrefix + namespace + ":"}
}

func (r *RedisBackend[V]) Get(ctx context.Context, key string) (Entry[V], bool, error) {
	var entry Entry[V]
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entry, false, nil
		}
		return entry, false, err
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, false, err
	}
	if entry.CreatedAt.IsZero() {
		return entry, false, errors.New("cache entry without creation time")
	}
	return entry, true, nil
}

func (r *RedisBackend[V]) Set(ctx context.Context, entry Entry[V], ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+entry.Key, data, ttl).Err()
}

func (r *RedisBackend[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func (r *RedisBackend[V]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
