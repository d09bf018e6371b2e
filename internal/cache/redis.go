package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/predictify/pkg/models"
)

const redisKeyPrefix = "predictify:prediction:"

// Connect builds a client from a redis:// URL or a plain host:port.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisCache stores predictions as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(eventID string) string {
	return redisKeyPrefix + eventID
}

func (c *RedisCache) Get(ctx context.Context, eventID string) (*models.Prediction, error) {
	raw, err := c.client.Get(ctx, redisKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", eventID, err)
	}

	var p models.Prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode cached prediction %s: %w", eventID, err)
	}
	return &p, nil
}

func (c *RedisCache) Set(ctx context.Context, eventID string, p *models.Prediction) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prediction %s: %w", eventID, err)
	}
	if err := c.client.Set(ctx, redisKey(eventID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", eventID, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, redisKey(eventID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", eventID, err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
