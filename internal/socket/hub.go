// README: WebSocket hub broadcasting dispatch events to connected clients.
package socket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"courier/internal/events"
)

// Hub tracks live WebSocket connections and pushes every dispatch event
// to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
	log.Printf("websocket client registered (%d connected)", len(h.clients))
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// Publish implements events.Publisher. A client that fails a write is
// dropped; slow consumers must not stall the bus.
func (h *Hub) Publish(ev events.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("websocket marshal event %s: %v", ev.ID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
