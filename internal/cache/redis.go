// Package cache keeps short code to destination lookups out of the database
// on the redirect path.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/qrcode-service/internal/config"
)

const keyPrefix = "qr:redirect:"

// RedirectCache stores destinations by short code. A miss returns ok=false
// and no error.
type RedirectCache interface {
	Get(ctx context.Context, shortCode string) (destination string, ok bool, err error)
	Set(ctx context.Context, shortCode, destination string) error
	Delete(ctx context.Context, shortCode string) error
}

// RedisCache is a RedirectCache backed by Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

// Get returns the cached destination for shortCode
func (c *RedisCache) Get(ctx context.Context, shortCode string) (string, bool, error) {
	dest, err := c.client.Get(ctx, key(shortCode)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read redirect cache: %w", err)
	}
	return dest, true, nil
}

// Set caches destination for the configured TTL
func (c *RedisCache) Set(ctx context.Context, shortCode, destination string) error {
	if err := c.client.Set(ctx, key(shortCode), destination, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write redirect cache: %w", err)
	}
	return nil
}

// Delete drops the cached destination
func (c *RedisCache) Delete(ctx context.Context, shortCode string) error {
	if err := c.client.Del(ctx, key(shortCode)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate redirect cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func key(shortCode string) string {
	return keyPrefix + shortCode
}

// Noop is used when Redis is disabled
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (Noop) Set(context.Context, string, string) error         { return nil }
func (Noop) Delete(context.Context, string) error              { return nil }
