package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"zonewatch/internal/pipeline"
)

// Hub manages WebSocket connections for real-time tick streaming.
type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[conn] = true
	fmt.Printf("[WS] Client registered (total: %d)\n", len(h.clients))
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		fmt.Printf("[WS] Client unregistered\n")
	}
}

// HasClients returns true if any clients are connected.
func (h *Hub) HasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		err := conn.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			fmt.Printf("[WS] Error sending to client: %v\n", err)
			h.Unregister(conn)
			conn.Close()
		}
	}
}

// BroadcastTick sends a tick result to all connected clients.
func (h *Hub) BroadcastTick(result *pipeline.TickResult) {
	if !h.HasClients() {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		fmt.Printf("[WS] Error marshaling tick message: %v\n", err)
		return
	}
	h.Broadcast(data)
}

// OnTick implements pipeline.TickHandler so the hub can subscribe to the
// tick bus directly.
func (h *Hub) OnTick(result *pipeline.TickResult) {
	h.BroadcastTick(result)
}
