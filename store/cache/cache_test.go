package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 10})
	c.Set("a", "1")

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)

	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestExpiration(t *testing.T) {
	c := New(Config{DefaultTTL: 10 * time.Millisecond, MaxItems: 10})
	c.Set("a", "1")

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestEviction(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 3})
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	// Touch k0 so k1 becomes the eviction candidate.
	c.Get("k0")
	c.Set("k3", 3)

	_, ok := c.Get("k1")
	require.False(t, ok)
	_, ok = c.Get("k0")
	require.True(t, ok)
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 10})
	c.Set("a", "1")
	c.Delete("a")
	c.Delete("a")
	require.Equal(t, 0, c.Len())
}
