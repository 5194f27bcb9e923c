package ivsapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisCachePrefix = "lounge:channel:"

// Cache stores channel metadata keyed by ARN.
type Cache interface {
	Get(ctx context.Context, key string) (Channel, bool, error)
	Set(ctx context.Context, key string, ch Channel, ttl time.Duration) error
}

// RedisCache stores channels in Redis with JSON serialization.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Channel, bool, error) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Channel{}, false, nil
		}
		return Channel{}, false, err
	}
	var ch Channel
	if err := json.Unmarshal(data, &ch); err != nil {
		return Channel{}, false, err
	}
	return ch, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, ch Channel, ttl time.Duration) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
