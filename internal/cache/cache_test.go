package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU[int](2, 0)

	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used
	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok)

	v, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Size)
	assert.InDelta(t, 66.67, stats.HitRate, 0.01)
}

func TestLRU_UpdateMovesToFront(t *testing.T) {
	c := NewLRU[string](2, 0)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "updated")
	c.Set("c", "3")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "updated", v)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRU_TTL(t *testing.T) {
	c := NewLRU[int](10, 50*time.Millisecond)
	c.Set("short", 1)

	_, ok := c.Get("short")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("short")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestLRU_NoTTL(t *testing.T) {
	c := NewLRU[int](10, 0)
	c.Set("forever", 2)

	time.Sleep(20 * time.Millisecond)
	v, ok := c.Get("forever")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLRU_Invalidate(t *testing.T) {
	c := NewLRU[int](10, 0)
	c.Set("content:1", 1)
	c.Set("content:2", 2)
	c.Set("pair:1", 3)

	c.Invalidate("pair:1")
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 2, c.InvalidatePrefix("content:"))
	assert.Equal(t, 0, c.Len())

	c.Set("x", 1)
	c.Clear()
	assert.Equal(t, Stats{MaxSize: 10}, c.GetStats())
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](16, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*j)%32)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}

func TestKey(t *testing.T) {
	a := Key("content", "name == 'x'", "")
	b := Key("content", "name == 'x'", "")
	c := Key("content", "name == 'x", "'")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "content:"))
}
