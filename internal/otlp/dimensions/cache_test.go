package dimensions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheMissWhenEmpty(t *testing.T) {
	c := newTTLCache(8, time.Minute, time.Now)
	_, fresh, found := c.get("x")
	assert.False(t, found)
	assert.False(t, fresh)
}

func TestTTLCacheHitIsFreshWithinWindow(t *testing.T) {
	clock := time.Unix(1000, 0)
	c := newTTLCache(8, time.Minute, func() time.Time { return clock })
	c.put("x", 7)

	id, fresh, found := c.get("x")
	require.True(t, found)
	assert.True(t, fresh)
	assert.Equal(t, int64(7), id)
}

func TestTTLCacheStaleAfterDeadline(t *testing.T) {
	clock := time.Unix(1000, 0)
	c := newTTLCache(8, time.Minute, func() time.Time { return clock })
	c.put("x", 7)

	clock = clock.Add(2 * time.Minute)
	id, fresh, found := c.get("x")
	require.True(t, found)
	assert.False(t, fresh)
	assert.Equal(t, int64(7), id, "stale entries remain readable, only lose freshness")
}

func TestTTLCachePutRefreshesDeadline(t *testing.T) {
	clock := time.Unix(1000, 0)
	c := newTTLCache(8, time.Minute, func() time.Time { return clock })
	c.put("x", 7)

	clock = clock.Add(2 * time.Minute)
	c.put("x", 9)
	id, fresh, found := c.get("x")
	require.True(t, found)
	assert.True(t, fresh)
	assert.Equal(t, int64(9), id)
}

func TestTTLCacheSizeAndPurge(t *testing.T) {
	c := newTTLCache(8, time.Minute, time.Now)
	c.put("a", 1)
	c.put("b", 2)
	assert.Equal(t, 2, c.size())

	c.purge()
	assert.Equal(t, 0, c.size())
	_, _, found := c.get("a")
	assert.False(t, found)
}
