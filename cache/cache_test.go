package cache_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/boundary/cache"
)

func TestNew_RejectsInvalidBounds(t *testing.T) {
	_, err := cache.New[string, string](0, time.Minute)
	assert.Error(t, err)

	_, err = cache.New[string, string](-5, time.Minute)
	assert.Error(t, err)

	_, err = cache.New[string, string](10, 0)
	assert.Error(t, err)
}

func TestCache_NeverGrowsBeyondCapacity(t *testing.T) {
	c, err := cache.New[string, int](1000, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 2500; i++ {
		c.Add(fmt.Sprintf("key-%d", i), i)
		assert.LessOrEqual(t, c.Len(), 1000)
	}
	assert.Equal(t, 1000, c.Len())
}

func TestCache_EvictsLeastRecentlyUsedFirst(t *testing.T) {
	c, err := cache.New[string, int](2, time.Minute)
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)

	// Touch "a" so "b" becomes the least recently used entry.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Add("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_EntriesExpireAfterTTL(t *testing.T) {
	c, err := cache.New[string, int](10, 20*time.Millisecond)
	require.NoError(t, err)

	c.Add("a", 1)
	_, ok := c.Get("a")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("a")
	assert.False(t, ok, "entry should have expired")
}
