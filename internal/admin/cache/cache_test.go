package cache_test

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// harness pairs a cache with a way to move its clock forward.
type harness struct {
	cache   cache.Cache
	advance func(time.Duration)
}

func newRedisHarness(t *testing.T) harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewRedisFromClient(client, time.Second)
	t.Cleanup(func() { _ = c.Close() })
	return harness{cache: c, advance: mr.FastForward}
}

func newMemoryHarness(t *testing.T) harness {
	t.Helper()
	c, err := cache.NewMemory(16)
	require.NoError(t, err)

	now := time.Now()
	c.SetClock(func() time.Time { return now })
	return harness{cache: c, advance: func(d time.Duration) { now = now.Add(d) }}
}

func TestCacheContract(t *testing.T) {
	drivers := map[string]func(*testing.T) harness{
		"redis":  newRedisHarness,
		"memory": newMemoryHarness,
	}

	for name, newHarness := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("get on absent key is a miss", func(t *testing.T) {
				h := newHarness(t)
				_, err := h.cache.Get(ctx, "nope")
				require.ErrorIs(t, err, cache.ErrMiss)
			})

			t.Run("set then get until ttl lapses", func(t *testing.T) {
				h := newHarness(t)
				require.NoError(t, h.cache.Set(ctx, "k", "v", time.Minute))

				v, err := h.cache.Get(ctx, "k")
				require.NoError(t, err)
				require.Equal(t, "v", v)

				h.advance(time.Minute)
				_, err = h.cache.Get(ctx, "k")
				require.ErrorIs(t, err, cache.ErrMiss)
			})

			t.Run("zero ttl never expires", func(t *testing.T) {
				h := newHarness(t)
				require.NoError(t, h.cache.Set(ctx, "k", "v", 0))
				h.advance(24 * time.Hour)

				v, err := h.cache.Get(ctx, "k")
				require.NoError(t, err)
				require.Equal(t, "v", v)
			})

			t.Run("del is idempotent", func(t *testing.T) {
				h := newHarness(t)
				require.NoError(t, h.cache.Set(ctx, "k", "v", 0))
				require.NoError(t, h.cache.Del(ctx, "k", "absent"))
				require.NoError(t, h.cache.Del(ctx, "k"))

				_, err := h.cache.Get(ctx, "k")
				require.ErrorIs(t, err, cache.ErrMiss)
			})

			t.Run("take removes a key for exactly one caller", func(t *testing.T) {
				h := newHarness(t)
				require.NoError(t, h.cache.Set(ctx, "captcha:x", "abcd", time.Minute))

				const callers = 8
				var wg sync.WaitGroup
				var won atomic.Int32
				for range callers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						ok, err := h.cache.Take(ctx, "captcha:x")
						if err == nil && ok {
							won.Add(1)
						}
					}()
				}
				wg.Wait()
				require.EqualValues(t, 1, won.Load())

				ok, err := h.cache.Take(ctx, "captcha:x")
				require.NoError(t, err)
				require.False(t, ok)
			})

			t.Run("setnx only writes once", func(t *testing.T) {
				h := newHarness(t)
				ok, err := h.cache.SetNX(ctx, "ver", "1", 0)
				require.NoError(t, err)
				require.True(t, ok)

				ok, err = h.cache.SetNX(ctx, "ver", "5", 0)
				require.NoError(t, err)
				require.False(t, ok)

				v, err := h.cache.Get(ctx, "ver")
				require.NoError(t, err)
				require.Equal(t, "1", v)
			})

			t.Run("incr creates and counts", func(t *testing.T) {
				h := newHarness(t)
				n, err := h.cache.Incr(ctx, "fresh")
				require.NoError(t, err)
				require.EqualValues(t, 1, n)

				require.NoError(t, h.cache.Set(ctx, "ver", "1", 0))
				n, err = h.cache.Incr(ctx, "ver")
				require.NoError(t, err)
				require.EqualValues(t, 2, n)
			})

			t.Run("ping", func(t *testing.T) {
				require.NoError(t, newHarness(t).cache.Ping(ctx))
			})
		})
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	c := cache.NewRedisFromClient(client, 200*time.Millisecond)
	t.Cleanup(func() { _ = c.Close() })

	mr.Close()

	_, err := c.Get(context.Background(), "k")
	require.ErrorIs(t, err, cache.ErrUnavailable)
	require.NotErrorIs(t, err, cache.ErrMiss)

	require.ErrorIs(t, c.Ping(context.Background()), cache.ErrUnavailable)
}

func TestMemoryCancelledContext(t *testing.T) {
	c, err := cache.NewMemory(4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrUnavailable)
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewMemory(2)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", "1", time.Hour))
	require.NoError(t, c.Set(ctx, "b", "2", time.Hour))
	_, err = c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", "3", time.Hour))

	_, err = c.Get(ctx, "b")
	require.ErrorIs(t, err, cache.ErrMiss)
	_, err = c.Get(ctx, "a")
	require.NoError(t, err)
}

func TestMemoryNeverEvictsKeysWithoutTTL(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewMemory(2)
	require.NoError(t, err)

	ok, err := c.SetNX(ctx, "auth:user:1:ver", "1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	n, err := c.Incr(ctx, "auth:user:1:ver")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	for i := range 10 {
		require.NoError(t, c.Set(ctx, "auth:token:"+strconv.Itoa(i), "x", time.Hour))
	}

	v, err := c.Get(ctx, "auth:user:1:ver")
	require.NoError(t, err)
	require.Equal(t, "2", v)

	// Moving a key between expiring and durable keeps a single copy.
	require.NoError(t, c.Set(ctx, "auth:user:1:ver", "3", time.Minute))
	require.NoError(t, c.Del(ctx, "auth:user:1:ver"))
	_, err = c.Get(ctx, "auth:user:1:ver")
	require.ErrorIs(t, err, cache.ErrMiss)
}

func TestMemoryIncrRejectsNonInteger(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewMemory(2)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", "abc", 0))
	_, err = c.Incr(ctx, "k")
	require.ErrorIs(t, err, cache.ErrNotInteger)
}
