package credentials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle counts sign-in attempts per email in fixed windows.
type RedisThrottle struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisThrottle(client *redis.Client, prefix string, limit int, window time.Duration) *RedisThrottle {
	return &RedisThrottle{
		client: client,
		prefix: prefix + ":signin:",
		limit:  int64(limit),
		window: window,
	}
}

func (t *RedisThrottle) key(email string) string {
	return t.prefix + strings.ToLower(strings.TrimSpace(email))
}

// Allow records an attempt and reports whether it is within the limit.
func (t *RedisThrottle) Allow(ctx context.Context, email string) (bool, error) {
	key := t.key(email)

	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("throttle: incr: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return false, fmt.Errorf("throttle: expire: %w", err)
		}
	}
	return n <= t.limit, nil
}

// Reset forgets the attempts for email, called after a successful sign-in.
func (t *RedisThrottle) Reset(ctx context.Context, email string) error {
	return t.client.Del(ctx, t.key(email)).Err()
}
