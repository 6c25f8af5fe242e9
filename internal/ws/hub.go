package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prasanna192005/ObservoAI/internal/api"
	"github.com/prasanna192005/ObservoAI/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope for everything the hub sends. Event is
// "snapshot" (full state, sent once on connect) or "delta" (only what
// changed since the previous broadcast).
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Delta carries the routes whose observation state changed since the last
// broadcast, plus any routes the store evicted in the meantime. Ticks where
// nothing changed produce no message at all.
type Delta struct {
	Routes      []api.RouteResponse `json:"routes"`
	Removed     []string            `json:"removed,omitempty"`
	GeneratedAt string              `json:"generated_at"`
}

// Hub manages WebSocket client connections. New clients get a full snapshot
// on connect; after that the ticker loop pushes per-route deltas.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}

	// seen maps route -> UpdatedAt as of the last broadcast. Touched only
	// by the Run goroutine.
	seen map[string]time.Time
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that reads from st and broadcasts every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
		seen:     make(map[string]time.Time),
	}
}

// Run starts the broadcast ticker loop. Each tick sends the delta against
// the previous tick to all connected clients. Run blocks until ctx is
// cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast()
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// It sends the full snapshot immediately on connect, then the client follows
// the delta stream. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	// Full state up front so dashboards have data before the first delta.
	snapshot := Message{Event: "snapshot", Data: api.BuildSnapshot(h.store)}
	if data, err := json.Marshal(snapshot); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast diffs the store against the previous tick and pushes the result.
// A tick with no changes stays off the wire.
func (h *Hub) broadcast() {
	delta, ok := h.collectDelta()
	if !ok {
		return
	}

	data, err := json.Marshal(Message{Event: "delta", Data: delta})
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			// Client's outgoing buffer is full — disconnect it.
			h.unregister(c)
		}
	}
}

// collectDelta returns the routes updated since the last broadcast and the
// routes the store dropped. ok is false when nothing changed.
func (h *Hub) collectDelta() (Delta, bool) {
	entries := h.store.List()

	delta := Delta{GeneratedAt: time.Now().UTC().Format(time.RFC3339)}
	current := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		route := e.Result.Route
		current[route] = e.UpdatedAt
		if last, known := h.seen[route]; !known || e.UpdatedAt.After(last) {
			delta.Routes = append(delta.Routes, api.RouteFromEntry(e))
		}
	}
	for route := range h.seen {
		if _, still := current[route]; !still {
			delta.Removed = append(delta.Removed, route)
		}
	}
	h.seen = current

	if len(delta.Routes) == 0 && len(delta.Removed) == 0 {
		return Delta{}, false
	}
	sort.Slice(delta.Routes, func(i, j int) bool { return delta.Routes[i].Route < delta.Routes[j].Route })
	sort.Strings(delta.Removed)
	return delta, true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
