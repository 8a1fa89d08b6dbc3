package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps tab records in Redis so a restarted client can
// restore the tab. Keys expire after the tab session lifetime.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a Redis-backed tab storage. origin namespaces
// the keys, ttl bounds how long an idle tab is remembered.
func NewRedisStorage(client *redis.Client, origin string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client: client,
		prefix: origin + ":tab:",
		ttl:    ttl,
	}
}

func (r *RedisStorage) key(scope string) string {
	return r.prefix + scope + ":" + UserKey
}

func (r *RedisStorage) Load(ctx context.Context, scope string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("session: load %s: %w", scope, err)
	}
	return val, nil
}

func (r *RedisStorage) Save(ctx context.Context, scope string, data []byte) error {
	if scope == "" {
		return fmt.Errorf("session: missing scope")
	}
	return r.client.Set(ctx, r.key(scope), data, r.ttl).Err()
}

func (r *RedisStorage) Delete(ctx context.Context, scope string) error {
	return r.client.Del(ctx, r.key(scope)).Err()
}
