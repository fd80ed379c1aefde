package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(4)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("payload"), time.Minute)
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(4)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("payload"), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	// The expired entry was lazily dropped by the read.
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheExpiredReadNeverDropsConcurrentRefresh(t *testing.T) {
	c := NewMemoryCache(4)
	ctx := context.Background()

	// A reader observing an expired entry races a writer refreshing the
	// same key; whatever the interleaving, the fresh value must survive.
	for i := 0; i < 200; i++ {
		c.Set(ctx, "k", []byte("stale"), -time.Millisecond)

		done := make(chan struct{})
		go func() {
			c.Get(ctx, "k")
			close(done)
		}()
		c.Set(ctx, "k", []byte("fresh"), time.Minute)
		<-done

		got, ok := c.Get(ctx, "k")
		require.True(t, ok, "iteration %d", i)
		require.Equal(t, []byte("fresh"), got)
	}
}

func TestMemoryCacheEvictsNearestToExpiry(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	c.Set(ctx, "long", []byte("1"), time.Hour)
	c.Set(ctx, "short", []byte("2"), time.Minute)
	c.Set(ctx, "new", []byte("3"), time.Hour)

	require.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "long")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "new")
	assert.True(t, ok)
}

func TestMemoryCacheOverwriteDoesNotEvict(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Hour)
	c.Set(ctx, "a", []byte("3"), time.Hour)

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("3"), got)
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	c := NewMemoryCache(8)
	ctx := context.Background()

	c.Set(ctx, "days:standard:7:aaa", []byte("1"), time.Minute)
	c.Set(ctx, "days:standard:7:bbb", []byte("2"), time.Minute)
	c.Set(ctx, "days:priority:7:ccc", []byte("3"), time.Minute)

	c.DeletePrefix(ctx, "days:standard:7:")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(ctx, "days:priority:7:ccc")
	assert.True(t, ok)
}

func TestKeyIsDeterministicAndPrefixed(t *testing.T) {
	a := Key("days", "standard:7", map[string]string{"from": "x", "to": "y"})
	b := Key("days", "standard:7", map[string]string{"to": "y", "from": "x"})
	assert.Equal(t, a, b)

	assert.Contains(t, a, Prefix("days", "standard:7"))
	assert.NotEqual(t, a, Key("days", "standard:7", map[string]string{"from": "x"}))
	assert.NotEqual(t, a, Key("days", "priority:7", map[string]string{"from": "x", "to": "y"}))
}
