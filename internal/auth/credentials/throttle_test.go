package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	th := NewRedisThrottle(client, "payshield", 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := th.Allow(ctx, "Alice@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := th.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = th.Allow(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "limits are per email")

	mr.FastForward(2 * time.Minute)
	ok, err = th.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "window expired")

	require.NoError(t, th.Reset(ctx, "alice@example.com"))
	assert.False(t, mr.Exists("payshield:signin:alice@example.com"))
}
