package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ozgund/readbox/internal/config"
)

// RedisClient remembers, per feed, the hash of the last document the batch
// processed. Keys expire after the configured TTL so a feed that goes
// quiet for long enough gets a full pass again.
type RedisClient struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		prefix: cfg.RedisPrefix + "feeddoc:",
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// IsUnchanged reports whether hash matches the recorded hash for the feed.
// An absent key means "changed": the feed gets a full pass.
func (r *RedisClient) IsUnchanged(ctx context.Context, feedID uuid.UUID, hash string) (bool, error) {
	stored, err := r.client.Get(ctx, r.prefix+feedID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get error: %w", err)
	}
	return stored == hash, nil
}

// Remember records the document hash for a feed with the given TTL.
func (r *RedisClient) Remember(ctx context.Context, feedID uuid.UUID, hash string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+feedID.String(), hash, ttl).Err()
}

// Forget drops the recorded hash so the next pass processes the feed fully.
func (r *RedisClient) Forget(ctx context.Context, feedID uuid.UUID) error {
	return r.client.Del(ctx, r.prefix+feedID.String()).Err()
}
