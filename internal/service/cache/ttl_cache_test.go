package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()

	require.NoError(t, c.SetBytes("k", []byte("v"), time.Minute))
	b, ok, err := c.GetBytes("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTLCache()

	_, ok, err := c.GetBytes("absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()

	require.NoError(t, c.SetBytes("k", []byte("v"), 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, ok, err := c.GetBytes("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()

	c.Set("k", []byte("v"), 0)
	_, ok, err := c.GetBytes("k")
	require.NoError(t, err)
	require.True(t, ok)
}
