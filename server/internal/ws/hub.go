package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reportdesk/reportdesk/server/internal/api"
)

const (
	writeTimeout = 10 * time.Second

	// pongWait is how long a silent connection is kept before it is treated
	// as dead. pingPeriod must stay below it.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client queue depth. A client whose queue is
	// full at broadcast time is dropped.
	sendBufSize = 16
)

// Event names carried in Message.Event.
const (
	EventStatus = "status" // on connect and on every tick
	EventEvict  = "evict"  // the cache dropped entries or sessions
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; apply CORS at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StatusSource builds the status payload as of a point in time.
type StatusSource interface {
	Status(now time.Time) api.StatusResponse
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string             `json:"event"`
	Data  api.StatusResponse `json:"data"`
}

// Hub streams session cache status to websocket clients: once on connect,
// on every tick and whenever Notify reports an eviction.
type Hub struct {
	source   StatusSource
	interval time.Duration
	now      func() time.Time
	evicted  chan struct{}

	// mu guards clients and every send into a client queue. Client queues
	// are never closed; removal closes the client's done channel instead.
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	done   chan struct{}
}

func newClient(conn *websocket.Conn, remote string) *client {
	return &client{
		conn:   conn,
		remote: remote,
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
	}
}

// New creates a Hub that reads from source and broadcasts every interval.
func New(source StatusSource, interval time.Duration) *Hub {
	return &Hub{
		source:   source,
		interval: interval,
		now:      time.Now,
		evicted:  make(chan struct{}, 1),
		clients:  make(map[*client]struct{}),
	}
}

// Notify schedules an evict event. It never blocks and does not touch the
// status source, so it is safe to call from the cache's eviction hook while
// the cache lock is held. Notifications arriving before the last one was
// sent are coalesced.
func (h *Hub) Notify() {
	select {
	case h.evicted <- struct{}{}:
	default:
	}
}

// Run broadcasts until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast(EventStatus)
		case <-h.evicted:
			h.broadcast(EventEvict)
		}
	}
}

// ServeHTTP upgrades the connection, queues the current status and serves
// the client until it disconnects or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newClient(conn, r.RemoteAddr)
	// The queue is private until register, so this send needs no lock.
	if data, err := h.message(EventStatus); err == nil {
		c.send <- data
	}
	h.register(c)
	defer h.unregister(c)

	slog.Debug("ws: client connected", "remote", c.remote)
	go c.writePump()
	c.readPump()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.done)
}

// broadcast queues one message for every client. The hub lock is held for
// the whole pass so no client can be removed halfway through.
func (h *Hub) broadcast(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := h.message(event)
	if err != nil {
		slog.Error("ws: encode status", "err", err)
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("ws: client too slow, disconnecting", "remote", c.remote)
			h.removeLocked(c)
		}
	}
}

func (h *Hub) message(event string) ([]byte, error) {
	return json.Marshal(Message{Event: event, Data: h.source.Status(h.now())})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// writePump forwards queued messages and pings until the client is removed
// or a write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles control frames and detects disconnects. Clients are not
// expected to send data.
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
			return
		}
	}
}
