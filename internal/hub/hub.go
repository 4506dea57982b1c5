package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	ws "github.com/gorilla/websocket"
)

// Hub pushes finalized utterances to any connected UI clients over
// WebSocket. Clients are read-only; anything they send is discarded.
type Hub struct {
	log      *slog.Logger
	upgrader ws.Upgrader

	mu      sync.Mutex
	clients map[*ws.Conn]struct{}
}

func New(log *slog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: ws.Upgrader{
			// the daemon binds to loopback; the UI is local
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*ws.Conn]struct{}),
	}
}

// Handler upgrades an HTTP request and keeps the connection registered
// until the peer goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", "err", err)
			return
		}

		h.mu.Lock()
		h.clients[conn] = struct{}{}
		n := len(h.clients)
		h.mu.Unlock()
		h.log.Info("ui client connected", "clients", n)

		go h.readUntilClosed(conn)
	}
}

func (h *Hub) readUntilClosed(conn *ws.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *Hub) drop(conn *ws.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends v as JSON to every connected client. Failed clients are
// dropped. The websocket library allows one writer per connection, and
// broadcasts arrive from the sweep goroutine, the ipc flush handler and
// shutdown, so the writes stay under the lock.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("broadcast marshal failed", "err", err)
		return
	}

	h.mu.Lock()
	for c := range h.clients {
		if err := c.WriteMessage(ws.TextMessage, data); err != nil {
			delete(h.clients, c)
			c.Close()
		}
	}
	h.mu.Unlock()
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		c.Close()
	}
	h.clients = make(map[*ws.Conn]struct{})
	h.mu.Unlock()
}
