package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"hulugan/backend/internal/domain"
)

type RedisDuesCache struct {
	client *redis.Client
}

func NewRedisDuesCache(addr string, password string, db int) *RedisDuesCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDuesCache{client: client}
}

func (c *RedisDuesCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDuesCache) Close() error {
	return c.client.Close()
}

func (c *RedisDuesCache) Get(ctx context.Context, key string) (*domain.DuesResponse, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resp domain.DuesResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (c *RedisDuesCache) Set(ctx context.Context, key string, value *domain.DuesResponse, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
