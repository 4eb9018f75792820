package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Set(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

func exerciseStore(t *testing.T, store sessionStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, store.Set(ctx, "abc", []byte(`{"mode":"signin"}`), time.Hour))

	data, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"signin"}`, string(data))

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.True(t, errors.IsNotFound(err))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(context.Background(), "abc", []byte("x"), time.Minute))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(context.Background(), "abc")
	assert.True(t, errors.IsNotFound(err))
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemory()
	data := []byte("abc")
	require.NoError(t, store.Set(context.Background(), "k", data, 0))
	data[0] = 'z'

	got, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisWithClient(client, "")
	require.NoError(t, store.Ping(context.Background()))
	exerciseStore(t, store)
}

func TestRedisStoreUsesPrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisWithClient(client, "test:")
	require.NoError(t, store.Set(context.Background(), "abc", []byte("x"), time.Minute))

	assert.True(t, mr.Exists("test:abc"))
	assert.Equal(t, time.Minute, mr.TTL("test:abc"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(context.Background(), "abc")
	assert.True(t, errors.IsNotFound(err))
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, RedisConfig{Addr: addr})
	assert.Error(t, err)
}
