// Package notifier fans push frames out to the websocket connections of
// each user.
package notifier

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chedlikh/greenspace-notify/internal/domain"
)

// Connection wraps websocket.Conn with metadata
type Connection struct {
	Conn     *websocket.Conn
	UserID   string
	LastSeen time.Time

	writeMu sync.Mutex
}

// WriteJSON serializes writes so pushes and echoes cannot interleave.
func (c *Connection) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{} // userID -> set of connections
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]map[*Connection]struct{}),
	}
}

// Add registers a connection for a user
func (h *Hub) Add(userID string, conn *websocket.Conn) *Connection {
	c := &Connection{Conn: conn, UserID: userID, LastSeen: time.Now()}

	h.mu.Lock()
	if _, ok := h.connections[userID]; !ok {
		h.connections[userID] = make(map[*Connection]struct{})
	}
	h.connections[userID][c] = struct{}{}
	total := len(h.connections[userID])
	h.mu.Unlock()

	log.Printf("[WS] connected: user=%s (total=%d)", userID, total)
	return c
}

// Remove disconnects and removes a connection
func (h *Hub) Remove(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.connections[c.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.connections, c.UserID)
		}
	}
	_ = c.Conn.Close()
	log.Printf("[WS] disconnected: user=%s", c.UserID)
}

// Send delivers a frame to every connection of a user.
func (h *Hub) Send(userID string, frame domain.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if conns, ok := h.connections[userID]; ok {
		for c := range conns {
			if err := c.WriteJSON(frame); err != nil {
				log.Printf("[WS] failed send to user=%s: %v", userID, err)
				go h.Remove(c)
			}
		}
	}
}

// Broadcast sends a frame to all users
func (h *Hub) Broadcast(frame domain.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.connections {
		for c := range conns {
			if err := c.WriteJSON(frame); err != nil {
				log.Printf("[WS] failed broadcast: %v", err)
				go h.Remove(c)
			}
		}
	}
}

// ConnectionCount reports how many connections a user currently holds.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// Heartbeat pings all connections at the given interval and drops the ones
// that went silent for more than two intervals.
func (h *Hub) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.RLock()
			for _, conns := range h.connections {
				for c := range conns {
					if time.Since(c.LastSeen) > 2*interval {
						go h.Remove(c)
						continue
					}
					_ = c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
				}
			}
			h.mu.RUnlock()
		}
	}
}
