package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGet(t *testing.T) {
	c := New[string, int](0)
	c.Set("funny", 1, 0)

	val, ok := c.Get("funny")
	assert.True(t, ok)
	assert.Equal(t, 1, val)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiration(t *testing.T) {
	c := New[string, string](0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("key1", "value1", time.Second)
	now = now.Add(2 * time.Second)

	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestDeleteAndClear(t *testing.T) {
	c := New[string, string](0)
	c.Set("a", "1", 0)
	c.Set("b", "2", 0)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestBoundedSize(t *testing.T) {
	c := New[int, int](2)
	c.Set(1, 1, 0)
	c.Set(2, 2, 0)
	c.Set(3, 3, 0)
	assert.Equal(t, 2, c.Len())

	val, ok := c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, 3, val)

	c.Set(3, 30, 0)
	assert.Equal(t, 2, c.Len(), "overwrite does not evict")
}

func TestInvalidatePrefix(t *testing.T) {
	c := New[string, string](0)
	c.Set("tag:a", "a", 0)
	c.Set("tag:b", "b", 0)
	c.Set("other", "x", 0)

	InvalidatePrefix(c, "tag:")

	_, ok1 := c.Get("tag:a")
	_, ok2 := c.Get("other")
	assert.False(t, ok1)
	assert.True(t, ok2)
}
