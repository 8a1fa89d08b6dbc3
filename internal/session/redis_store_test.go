package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStorage(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStorage(client, "payshield", ttl), mr
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	storage, mr := newRedisStorage(t, time.Hour)

	data, err := storage.Load(ctx, "tab-1")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, storage.Save(ctx, "tab-1", []byte(`{"email":"a@b.c"}`)))
	assert.True(t, mr.Exists("payshield:tab:tab-1:payshield_user"))
	assert.Equal(t, time.Hour, mr.TTL("payshield:tab:tab-1:payshield_user"))

	data, err = storage.Load(ctx, "tab-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@b.c"}`, string(data))

	require.NoError(t, storage.Delete(ctx, "tab-1"))
	data, err = storage.Load(ctx, "tab-1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisStorage_ExpiredTabIsForgotten(t *testing.T) {
	ctx := context.Background()
	storage, mr := newRedisStorage(t, time.Minute)

	s, err := NewStore(ctx, "tab-1", storage)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, alice()))

	mr.FastForward(2 * time.Minute)

	reloaded, err := NewStore(ctx, "tab-1", storage)
	require.NoError(t, err)
	_, ok := reloaded.Read()
	assert.False(t, ok)
}

func TestRedisStorage_LoadErrorFailsStoreConstruction(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	storage := NewRedisStorage(client, "payshield", time.Minute)
	mr.Close()

	_, err = NewStore(ctx, "tab-1", storage)
	assert.Error(t, err)
}

func TestRedisStorage_ClearWithCancelledContextStillDeletes(t *testing.T) {
	storage, mr := newRedisStorage(t, time.Hour)

	s, err := NewStore(context.Background(), "tab-1", storage)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), alice()))
	require.True(t, mr.Exists("payshield:tab:tab-1:"+UserKey))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Clear(ctx)

	assert.False(t, mr.Exists("payshield:tab:tab-1:"+UserKey))
	reloaded, err := NewStore(context.Background(), "tab-1", storage)
	require.NoError(t, err)
	_, ok := reloaded.Read()
	assert.False(t, ok)
}
