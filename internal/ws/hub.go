package ws

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/siebog/console/internal/buffer"
)

const (
	// sendQueueSize is the per-client queue length; a full queue drops the client.
	sendQueueSize = 256

	// MaxBacklog is the largest replay backlog. It leaves half the send queue
	// free for live lines while a new client drains the replay.
	MaxBacklog = sendQueueSize / 2
)

// Client represents a connected console client.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// NewClient creates a new console client.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
}

// Send queues a frame to be sent to the client.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, drop the slow client
		c.closeLocked()
	}
}

// Close closes the client's send queue.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ID returns the client identifier.
func (c *Client) ID() string {
	return c.id
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Hub fans console lines out to every connected client.
type Hub struct {
	clients map[*Client]bool
	backlog *buffer.LineRing
	mu      sync.RWMutex
}

// NewHub creates a Hub that replays up to backlog recent lines to newly
// registered clients. A backlog of 0 disables replay; values above
// MaxBacklog are clamped.
func NewHub(backlog int) *Hub {
	if backlog > MaxBacklog {
		backlog = MaxBacklog
	}
	return &Hub{
		clients: make(map[*Client]bool),
		backlog: buffer.NewLineRing(backlog),
	}
}

// Register adds a client and queues the backlog to it, oldest first.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	for _, line := range h.backlog.Lines() {
		client.Send([]byte(line))
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.Close()
}

// Publish records line in the backlog and sends it to all connected clients.
func (h *Hub) Publish(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.backlog.Push(line)
	data := []byte(line)
	for client := range h.clients {
		client.Send(data)
	}
}

// Publishf formats and publishes a line.
func (h *Hub) Publishf(format string, args ...any) {
	h.Publish(fmt.Sprintf(format, args...))
}

// Backlog returns the lines a new client would receive.
func (h *Hub) Backlog() []string {
	return h.backlog.Lines()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HasClients returns true if there are connected clients.
func (h *Hub) HasClients() bool {
	return h.ClientCount() > 0
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
