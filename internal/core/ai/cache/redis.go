package cache

import (
	"context"
	"fmt"

	"alercheck-api/internal/infrastructure/config"
	"alercheck-api/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore is the Redis cache backend. TTL is handled by Redis itself.
type RedisStore struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	common.LogInfo("redis cache initialized",
		zap.String("addr", cfg.RedisAddr),
		zap.Duration("ttl", cfg.TTL),
	)

	return &RedisStore{
		client: client,
		config: cfg,
	}, nil
}

// Get returns the cached reply for the prompt/image pair, or a cache-miss
// error.
func (s *RedisStore) Get(ctx context.Context, prompt, imageData string) (string, error) {
	value, err := s.client.Get(ctx, s.key(prompt, imageData)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}

	common.LogDebug("cache hit", zap.String("backend", "redis"))
	return value, nil
}

// Set stores the raw reply for the prompt/image pair with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, prompt, imageData, value string) error {
	if err := s.client.Set(ctx, s.key(prompt, imageData), value, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (s *RedisStore) key(prompt, imageData string) string {
	return "check:" + cacheKey(prompt, imageData)
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
