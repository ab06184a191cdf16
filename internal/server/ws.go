package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// clientBuffer is the number of events queued per client before new ones are dropped.
	clientBuffer = 64
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Live event types.
const (
	EventProgress = "progress"
	EventRep      = "rep"
)

// Event is one message of the live feed.
type Event struct {
	Type     string   `json:"type"`
	Progress *float64 `json:"progress,omitempty"`
	Reps     *int     `json:"reps,omitempty"`
}

// Hub broadcasts progress and rep events to websocket clients.
// It implements exercise.Sink and never blocks the caller: a client that
// falls behind loses events.
type Hub struct {
	reps    func() int
	logger  *slog.Logger
	clients map[*client]struct{}
	mu      sync.RWMutex
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. reps reports the running rep count attached to
// rep events and sent to clients when they connect.
func NewHub(reps func() int, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		reps:    reps,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// OnProgress implements exercise.Sink.
func (h *Hub) OnProgress(progress float64) {
	h.broadcast(Event{Type: EventProgress, Progress: &progress})
}

// OnRep implements exercise.Sink.
func (h *Hub) OnRep() {
	h.broadcast(h.repEvent())
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) repEvent() Event {
	reps := h.reps()
	return Event{Type: EventRep, Reps: &reps}
}

func (h *Hub) broadcast(e Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("encode live event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// ServeHTTP handles WebSocket upgrade requests for the live feed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	// Start every client with the current count.
	if msg, err := json.Marshal(h.repEvent()); err == nil {
		c.send <- msg
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

func (c *client) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.conn.Close()
			// Drain until ServeHTTP unregisters and closes the channel.
			for range c.send {
			}
			return
		}
	}
}
