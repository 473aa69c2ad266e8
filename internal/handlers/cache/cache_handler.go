// internal/handlers/cache/cache_handler.go
package cache

import (
	"net/http"

	"duka-service/internal/cache"
	"duka-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// CacheHandler exposes the cache admin surface. Both routes sit behind the
// bearer-token middleware.
type CacheHandler struct {
	cache *cache.TTLCache
	bus   *cache.Bus
}

func NewCacheHandler(c *cache.TTLCache, bus *cache.Bus) *CacheHandler {
	return &CacheHandler{cache: c, bus: bus}
}

// GetStats reports current cache size and keys.
func (h *CacheHandler) GetStats(c *gin.Context) {
	size, keys := h.cache.Stats()
	response.Success(c, http.StatusOK, "cache stats", gin.H{
		"stats": gin.H{
			"size": size,
			"keys": keys,
		},
	})
}

// Invalidate clears the named pattern, or everything when no type is given.
func (h *CacheHandler) Invalidate(c *gin.Context) {
	pattern := c.Query("type")

	if pattern == "" {
		h.cache.Clear()
		if h.bus != nil {
			h.bus.Publish(c.Request.Context(), "")
		}
		response.Success(c, http.StatusOK, "cache cleared", nil)
		return
	}

	prefix := pattern + ":"
	removed := h.cache.InvalidatePattern(prefix)
	if h.bus != nil {
		h.bus.Publish(c.Request.Context(), prefix)
	}
	response.Success(c, http.StatusOK, "cache pattern invalidated", gin.H{
		"pattern": prefix,
		"removed": removed,
	})
}
