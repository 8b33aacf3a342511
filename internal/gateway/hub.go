// Package gateway exposes the service to subscribers: a websocket hub that
// fans out price/signal events and a small REST surface over the coordinator's
// read/overwrite operations.
package gateway

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Event types pushed to subscribers.
const (
	EventPrice  = "price"
	EventSignal = "signal"
	EventStatus = "status"
)

// Hub manages the set of connected subscriber sessions. Sessions are
// unbounded and unauthenticated; publishing is best-effort with no queuing or
// delivery acknowledgment.
type Hub struct {
	symbol   string
	interval string

	mu      sync.RWMutex
	clients map[*Client]bool

	// Pre-built envelope of the most recent signal, replayed to new
	// subscribers so late joiners see current state immediately.
	lastSignal []byte

	// Optional hook — called with the client count after connect/disconnect.
	OnClientCount func(n int)
}

// NewHub creates a hub for the given symbol/interval.
func NewHub(symbol, interval string) *Hub {
	return &Hub{
		symbol:   symbol,
		interval: interval,
		clients:  make(map[*Client]bool),
	}
}

// Publish serializes one {type,data} envelope and sends it to every session
// currently connected. Sessions with a full send queue are silently skipped —
// no retry, no buffering beyond the per-client queue.
func (h *Hub) Publish(eventType string, payload any) {
	buf, err := envelope(eventType, payload)
	if err != nil {
		log.Printf("[gateway] envelope marshal failed for %q: %v", eventType, err)
		return
	}

	h.mu.Lock()
	if eventType == EventSignal {
		h.lastSignal = buf
	}
	for client := range h.clients {
		select {
		case client.send <- buf:
		default:
		}
	}
	h.mu.Unlock()
}

// HandleConn registers a freshly upgraded websocket connection and replays
// the last known signal (if any) followed by a connection-status event.
// The replay is queued under the same lock Publish takes, so a late joiner
// always sees the stored signal before any later publication.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	status, _ := envelope(EventStatus, statusPayload{
		Connected: true,
		Symbol:    h.symbol,
		Interval:  h.interval,
	})

	h.mu.Lock()
	h.clients[client] = true
	if h.lastSignal != nil {
		client.send <- h.lastSignal
	}
	client.send <- status
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] subscriber connected (%d total)", count)
	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}

	go client.writePump()
	go client.readPump()
}

// RemoveClient unregisters a client and releases its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	log.Printf("[gateway] subscriber disconnected (%d total)", count)
	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// statusPayload is the data of a "status" event.
type statusPayload struct {
	Connected bool   `json:"connected"`
	Symbol    string `json:"symbol"`
	Interval  string `json:"interval"`
}

// envelope builds the {type,data} wire format.
func envelope(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: eventType, Data: data})
}
