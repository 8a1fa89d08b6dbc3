package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"payshield/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisRelay carries relay messages over a Redis Pub/Sub channel, one
// channel per origin. Tabs in different processes share it.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(client *redis.Client, origin string) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: origin + ":relay",
	}
}

func (r *RedisRelay) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("relay: marshal: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Subscribe returns once Redis has confirmed the subscription, so no
// message published afterwards is missed.
func (r *RedisRelay) Subscribe(ctx context.Context, fn func(Message)) (func(), error) {
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("relay: subscribe %s: %w", r.channel, err)
	}

	ch := ps.Channel()
	go func() {
		for m := range ch {
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				logger.Warn("relay message undecodable", map[string]any{
					"channel": r.channel,
					"error":   err.Error(),
				})
				continue
			}
			fn(msg)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { _ = ps.Close() })
	}, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (r *RedisRelay) Close() error {
	return nil
}
