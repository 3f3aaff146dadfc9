// Package activity broadcasts live call status lines to operator dashboards
// over WebSocket. Delivery is fire-and-forget: publishing never blocks a
// dialog decision, and slow subscribers lose messages rather than holding
// anyone up.
package activity

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 10 * time.Second
)

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to all connected dashboard clients.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers an upgraded connection and starts its pumps. The hub
// owns the connection from here on and closes it when the client leaves or
// the hub shuts down.
func (h *Hub) Subscribe(conn *websocket.Conn) {
	sub := &subscriber{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	log.Printf("✅ Activity subscriber connected: %s", sub.id[:8])

	go h.writePump(sub)
	go h.readPump(sub)
}

// Publish sends an action line to every subscriber. Never blocks.
func (h *Hub) Publish(callID, message string) {
	h.Broadcast(NewActionEvent(callID, message))
}

// Broadcast fans an event out to all subscribers, dropping it for any whose
// queue is full.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.send <- event:
		default:
			// Slow dashboard, drop the event
		}
	}
}

// SubscriberCount returns the number of connected dashboards.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Shutdown disconnects all subscribers.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, sub := range h.subscribers {
		close(sub.send)
		delete(h.subscribers, id)
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.id]; ok {
		close(sub.send)
		delete(h.subscribers, sub.id)
	}
}

// writePump drains the subscriber's queue onto its connection.
func (h *Hub) writePump(sub *subscriber) {
	defer func() {
		sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		sub.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		sub.conn.Close()
	}()

	for event := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := sub.conn.WriteJSON(event); err != nil {
			h.remove(sub)
			return
		}
	}
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(sub *subscriber) {
	defer h.remove(sub)

	sub.conn.SetReadLimit(1024)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			log.Printf("🔌 Activity subscriber disconnected: %s", sub.id[:8])
			return
		}
	}
}
