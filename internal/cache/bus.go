// internal/cache/bus.go
package cache

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const invalidateChannel = "cache:invalidate"

// Bus fans cache invalidations out to sibling processes over redis pub/sub.
// The TTLCache itself stays process-local; the bus only shortens the window
// in which another instance can serve a stale entry after a write.
type Bus struct {
	client *redis.Client
	cache  *TTLCache
	logger *zap.Logger

	// originID filters out our own publishes on the subscribe side.
	originID string
}

func NewBus(client *redis.Client, c *TTLCache, logger *zap.Logger) *Bus {
	return &Bus{
		client:   client,
		cache:    c,
		logger:   logger,
		originID: ulid.Make().String(),
	}
}

// Publish broadcasts a prefix invalidation. Errors are logged, never
// surfaced: a cache-layer failure must not fail the write that triggered it.
func (b *Bus) Publish(ctx context.Context, prefix string) {
	if b == nil || b.client == nil {
		return
	}
	payload := fmt.Sprintf("%s|%s", b.originID, prefix)
	if err := b.client.Publish(ctx, invalidateChannel, payload).Err(); err != nil {
		b.logger.Warn("cache invalidation publish failed",
			zap.String("prefix", prefix),
			zap.Error(err),
		)
	}
}

// Listen applies remote invalidations to the local cache until ctx is done.
// Run it in its own goroutine.
func (b *Bus) Listen(ctx context.Context) {
	if b == nil || b.client == nil {
		return
	}

	sub := b.client.Subscribe(ctx, invalidateChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			origin, prefix := splitPayload(msg.Payload)
			if origin == b.originID {
				continue
			}
			if prefix == "" {
				b.cache.Clear()
				continue
			}
			b.cache.InvalidatePattern(prefix)
		}
	}
}

func splitPayload(payload string) (origin, prefix string) {
	for i := 0; i < len(payload); i++ {
		if payload[i] == '|' {
			return payload[:i], payload[i+1:]
		}
	}
	return payload, ""
}
