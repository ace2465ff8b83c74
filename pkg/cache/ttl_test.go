package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](time.Hour)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1, time.Hour)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestExpiry(t *testing.T) {
	c := New[string, int](time.Hour)

	c.Set("short", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestInvalidate(t *testing.T) {
	c := New[string, int](time.Hour)

	c.Set("a", 1, time.Hour)
	c.Invalidate("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCleanup(t *testing.T) {
	c := New[string, int](time.Hour)

	c.Set("keep", 1, time.Hour)
	c.Set("drop1", 2, 5*time.Millisecond)
	c.Set("drop2", 3, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	removed := c.Cleanup()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("keep")
	assert.True(t, ok)
}

func TestDefaultTTLApplied(t *testing.T) {
	c := New[string, int](15 * time.Millisecond)

	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
}
