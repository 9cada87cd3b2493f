package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLRU_BasicOperations(t *testing.T) {
	cache := NewLRU[string](10, time.Minute)

	cache.Set("a", "1", 0)
	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", got)

	cache.Set("a", "2", 0)
	got, _ = cache.Get("a")
	assert.Equal(t, "2", got)
	assert.Equal(t, 1, cache.Len())

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestLRU_Expiration(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewLRU[[]byte](10, time.Minute)
	cache.now = clock.Now

	cache.Set("short", []byte("x"), time.Second)
	cache.Set("long", []byte("y"), time.Hour)

	clock.Advance(2 * time.Second)
	_, ok := cache.Get("short")
	assert.False(t, ok)
	_, ok = cache.Get("long")
	assert.True(t, ok)

	cache.Set("another", []byte("z"), time.Second)
	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewLRU[int](2, time.Minute)
	cache.Set("a", 1, 0)
	cache.Set("b", 2, 0)
	cache.Get("a") // b becomes the eviction candidate
	cache.Set("c", 3, 0)

	_, ok := cache.Get("b")
	assert.False(t, ok)
	_, ok = cache.Get("a")
	assert.True(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestLRU_Invalidate(t *testing.T) {
	cache := NewLRU[int](10, time.Minute)
	cache.Set("tts:nova:1", 1, 0)
	cache.Set("tts:nova:2", 2, 0)
	cache.Set("tts:alloy:1", 3, 0)

	assert.Equal(t, 2, cache.Invalidate("tts:nova:*"))
	assert.Equal(t, 1, cache.Invalidate("tts:alloy:1"))
	assert.Equal(t, 0, cache.Invalidate("tts:alloy:1"))
	assert.Equal(t, 0, cache.Len())
}

func TestService_Contract(t *testing.T) {
	ctx := context.Background()
	svc := NewService(ServiceConfig{Capacity: 100, DefaultTTL: time.Minute, CleanupInterval: 10 * time.Millisecond})
	defer svc.Close()

	require.NoError(t, svc.Set(ctx, "k", []byte("v"), 0))
	got, ok := svc.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, svc.Invalidate(ctx, "k"))
	_, ok = svc.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, svc.Set(ctx, "brief", []byte("v"), 5*time.Millisecond))
	assert.Eventually(t, func() bool { return svc.Size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestService_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(DefaultServiceConfig())
	defer svc.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			_ = svc.Set(ctx, key, []byte(key), 0)
			_, _ = svc.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, svc.Size())
}
