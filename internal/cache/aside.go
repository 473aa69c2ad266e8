// internal/cache/aside.go
package cache

import (
	"context"
	"time"
)

// TTL policy per data class. Adding a class is a table edit, not a cache
// change.
var policies = map[string]time.Duration{
	"setup":         300 * time.Second,
	"categories":    300 * time.Second,
	"staff":         120 * time.Second,
	"products":      60 * time.Second,
	"orders":        30 * time.Second,
	"transactions":  30 * time.Second,
	"notifications": 15 * time.Second,
}

// TTLFor returns the policy TTL for a data class, or DefaultTTL for an
// unregistered class.
func TTLFor(class string) time.Duration {
	if ttl, ok := policies[class]; ok {
		return ttl
	}
	return DefaultTTL
}

// ComputeFunc produces the value for a cache key on a miss.
type ComputeFunc func(ctx context.Context) (interface{}, error)

// Aside wraps a TTLCache with read-through semantics: read the cache, else
// compute and populate. A failed computation is never cached.
type Aside struct {
	cache *TTLCache
}

func NewAside(c *TTLCache) *Aside {
	return &Aside{cache: c}
}

// GetCachedData returns the cached value for key, or invokes compute and
// stores its result for ttl. Compute errors propagate to the caller with the
// cache untouched.
func (a *Aside) GetCachedData(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (interface{}, error) {
	if v, ok := a.cache.Get(key); ok {
		return v, nil
	}

	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	a.cache.Set(key, v, ttl)
	return v, nil
}

// GetByClass is GetCachedData with the TTL taken from the policy table for
// the given data class.
func (a *Aside) GetByClass(ctx context.Context, class, key string, compute ComputeFunc) (interface{}, error) {
	return a.GetCachedData(ctx, key, TTLFor(class), compute)
}
