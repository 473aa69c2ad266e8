// internal/cache/ttlcache.go
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL applies when a caller passes a non-positive TTL.
const DefaultTTL = 60 * time.Second

type entry struct {
	value     interface{}
	expiresAt time.Time
	timer     *time.Timer
}

// TTLCache is a process-local cache with per-key expiry and prefix-based bulk
// invalidation. Eviction is dual-mechanism: each Set arms a timer, and Get
// checks expiry lazily so correctness never depends on timer delivery.
//
// All operations are total: the cache never returns an error, and a miss is
// the answer to any uncertainty.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

func NewTTLCache() *TTLCache {
	return &TTLCache{entries: make(map[string]*entry)}
}

// Get returns the value for key and true on a hit. An entry whose expiry has
// passed is treated as absent and removed, even if its timer has not fired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !time.Now().Before(e.expiresAt) {
		c.removeLocked(key, e)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl, overwriting any existing entry. The
// previous entry's timer is cancelled before the new one is armed, so a
// refreshed value can never be evicted by a stale timer.
func (c *TTLCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if old, ok := c.entries[key]; ok {
		old.timer.Stop()
	}

	e := &entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	e.timer = time.AfterFunc(ttl, func() { c.evict(key, e) })
	c.entries[key] = e
}

// Delete removes key and releases its timer. No-op if absent.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
}

// InvalidatePattern deletes every key that begins with prefix. A single
// business-level invalidation ("products changed") clears every derived entry
// without the caller enumerating exact keys.
func (c *TTLCache) InvalidatePattern(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(key, e)
			n++
		}
	}
	return n
}

// Clear empties the cache and cancels all timers.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		c.removeLocked(key, e)
	}
}

// Stats reports current size and keys. Read-only.
func (c *TTLCache) Stats() (int, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return len(keys), keys
}

// Close clears the cache and rejects further writes. Used at process shutdown
// and in test cleanup so no timer outlives its owner.
func (c *TTLCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		c.removeLocked(key, e)
	}
	c.closed = true
}

// evict is the timer callback. The entry pointer is compared so a timer from
// an overwritten entry can never remove its replacement.
func (c *TTLCache) evict(key string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur == e {
		delete(c.entries, key)
	}
}

func (c *TTLCache) removeLocked(key string, e *entry) {
	e.timer.Stop()
	delete(c.entries, key)
}
