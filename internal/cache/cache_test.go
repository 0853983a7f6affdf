package cache_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeauth/go-core/internal/cache"
)

func TestLRU_SetGet(t *testing.T) {
	c := cache.NewLRU(10, time.Minute)

	c.Set("principal-1:sess-1", []string{"finance_read", "finance_write"})

	perms, ok := c.Get("principal-1:sess-1")
	require.True(t, ok)
	assert.Equal(t, []string{"finance_read", "finance_write"}, perms)

	_, ok = c.Get("principal-2:sess-1")
	assert.False(t, ok)
}

func TestLRU_TTLExpiry(t *testing.T) {
	c := cache.NewLRU(10, 20*time.Millisecond)

	c.Set("k", []string{"code_read"})
	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestLRU_CapacityEviction(t *testing.T) {
	c := cache.NewLRU(2, time.Minute)

	c.Set("a", []string{"p1"})
	c.Set("b", []string{"p2"})
	c.Set("c", []string{"p3"})

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")

	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRU_DeleteAndClear(t *testing.T) {
	c := cache.NewLRU(10, time.Minute)

	c.Set("a", []string{"p1"})
	c.Set("b", []string{"p2"})

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestLRU_Stats(t *testing.T) {
	c := cache.NewLRU(10, time.Minute)

	c.Set("a", []string{"p1"})
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func newTestRedis(t *testing.T) *cache.Redis {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := cache.DefaultRedisConfig()
	cfg.TTL = time.Minute
	return cache.NewRedisWithClient(client, cfg, nil)
}

func TestRedis_SetGet(t *testing.T) {
	c := newTestRedis(t)

	c.Set("principal-1:sess-1", []string{"client_read", "quote_create"})

	perms, ok := c.Get("principal-1:sess-1")
	require.True(t, ok)
	assert.Equal(t, []string{"client_read", "quote_create"}, perms)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestRedis_DeleteAndClear(t *testing.T) {
	c := newTestRedis(t)

	c.Set("a", []string{"p1"})
	c.Set("b", []string{"p2"})

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}
