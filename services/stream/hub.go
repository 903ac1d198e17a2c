package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxClients    = 100
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = 30 * time.Second
	maxReadBytes  = 512
	sendQueueSize = 32
)

// Event is one message broadcast to dashboard clients.
type Event struct {
	Type    string    `json:"type"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Hub broadcasts scan lifecycle events to connected websocket clients.
// It implements scanner.Notifier so the coordinator's grouped messages
// reach the dashboard the same way they reach Telegram. Each client gets
// a buffered send queue drained by its own write goroutine; clients that
// fall behind are disconnected instead of stalling the broadcaster.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]chan []byte
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	count := len(h.clients)
	h.mu.RUnlock()
	if count >= maxClients {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("stream: websocket upgrade failed: %v", err)
		return
	}

	send := make(chan []byte, sendQueueSize)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go h.readLoop(conn)
	go h.writePump(conn, send)
}

// ClientCount returns how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify implements scanner.Notifier.
func (h *Hub) Notify(message string) {
	h.Broadcast(Event{Type: "notification", Message: message, Time: time.Now()})
}

// Broadcast queues the event for every connected client. It never waits
// on a client's socket: a client whose queue is full is dropped.
func (h *Hub) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	var stalled []*websocket.Conn
	h.mu.RLock()
	for conn, send := range h.clients {
		select {
		case send <- payload:
		default:
			stalled = append(stalled, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stalled {
		h.drop(conn)
	}
}

// writePump drains the client's send queue and keeps the connection
// alive with periodic pings. One per connection.
func (h *Hub) writePump(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer h.drop(conn)

	for {
		select {
		case payload, ok := <-send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes (and discards) client frames to detect disconnects
// and service pong handling.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)

	conn.SetReadLimit(maxReadBytes)
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// drop unregisters and closes the connection. Closing the send queue
// stops the write pump; the queue is only written under the read lock,
// so closing under the write lock cannot race a send.
func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}
