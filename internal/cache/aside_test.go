// internal/cache/aside_test.go
package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsideMissComputesAndCaches(t *testing.T) {
	c := NewTTLCache()
	defer c.Close()
	a := NewAside(c)

	calls := 0
	compute := func(ctx context.Context) (interface{}, error) {
		calls++
		return "computed", nil
	}

	v, err := a.GetCachedData(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, 1, calls)

	// Second read is a hit; compute must not run again.
	v, err = a.GetCachedData(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, 1, calls)
}

func TestAsideComputeFailureNotCached(t *testing.T) {
	c := NewTTLCache()
	defer c.Close()
	a := NewAside(c)

	boom := errors.New("store down")
	_, err := a.GetCachedData(context.Background(), "k", time.Minute, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := c.Get("k")
	assert.False(t, ok, "a failed computation must never be cached")
}

func TestTTLPolicyTable(t *testing.T) {
	assert.Equal(t, 300*time.Second, TTLFor("setup"))
	assert.Equal(t, 300*time.Second, TTLFor("categories"))
	assert.Equal(t, 120*time.Second, TTLFor("staff"))
	assert.Equal(t, 60*time.Second, TTLFor("products"))
	assert.Equal(t, 30*time.Second, TTLFor("orders"))
	assert.Equal(t, 15*time.Second, TTLFor("notifications"))
	assert.Equal(t, DefaultTTL, TTLFor("unknown-class"))
}
