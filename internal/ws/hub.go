// internal/ws/hub.go
package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// RefreshEvent is the named signal clients listen for; receiving it resets
// the client poller's backoff and forces an immediate fetch.
const RefreshEvent = "notifications:refresh"

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Hub is a broadcast-only fan-out: every connected client receives every
// message. There is no per-client routing because the only traffic is the
// refresh signal.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		logger:     logger,
	}
}

// Run owns the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer; drop the message rather than block
					// the hub.
					h.logger.Warn("dropping message to slow websocket client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastRefresh tells every connected client to re-fetch notifications.
func (h *Hub) BroadcastRefresh() {
	select {
	case h.broadcast <- &Message{Event: RefreshEvent}:
	default:
		h.logger.Warn("websocket broadcast queue full, refresh signal dropped")
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}
