package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldl-target-server/internal/domain"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(domain.CacheConfig{
		Backend:    "redis",
		RedisURL:   "redis://" + mr.Addr(),
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "abc", []byte("report")))

	got, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("report"), got)

	assert.True(t, mr.Exists(KeyPrefix+"abc"))
	assert.Equal(t, time.Minute, mr.TTL(KeyPrefix+"abc"))
}

func TestRedisCache_Expires(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc", []byte("report")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := newTestRedisCache(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "abc")
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(domain.CacheConfig{RedisURL: "not a url"})
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	c, err := New(domain.CacheConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	mr := miniredis.RunT(t)
	c, err = New(domain.CacheConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	require.NoError(t, c.Close())

	_, err = New(domain.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}
