package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write the close frame to the peer.
	writeWait = 5 * time.Second

	defaultQueueSize = 64
)

// Option configures a channel opened by Dial.
type Option func(*wsChannel)

// WithDialer overrides websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *wsChannel) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithQueueSize sets the capacity of the event queue. When the queue is
// full the reader stops pulling frames until the consumer catches up.
func WithQueueSize(n int) Option {
	return func(c *wsChannel) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// Dialer returns a Factory that opens channels with Dial and opts.
func Dialer(opts ...Option) Factory {
	return func(ctx context.Context, endpoint string) Channel {
		return Dial(ctx, endpoint, opts...)
	}
}

type wsChannel struct {
	endpoint  string
	dialer    *websocket.Dialer
	queueSize int
	events    chan Event

	// ctx bounds the lifetime of the channel; once it is done pending
	// events are dropped because no consumer is left.
	ctx        context.Context
	dialCtx    context.Context
	cancelDial context.CancelFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Dial opens a WebSocket push channel to endpoint. It returns immediately;
// the connection is established in the background and reported as
// EventOpen, or as EventError followed by EventClose when it fails. Inbound
// frames become EventMessage with the frame payload as opaque text. Nothing
// is ever sent and a dropped connection is not retried.
func Dial(ctx context.Context, endpoint string, opts ...Option) Channel {
	c := &wsChannel{
		endpoint:  endpoint,
		dialer:    websocket.DefaultDialer,
		queueSize: defaultQueueSize,
		ctx:       ctx,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = make(chan Event, c.queueSize)
	c.dialCtx, c.cancelDial = context.WithCancel(ctx)

	go c.run()
	return c
}

func (c *wsChannel) Events() <-chan Event {
	return c.events
}

// Close sends a normal close frame and tears down the connection. The
// resulting EventClose is still delivered to the consumer.
func (c *wsChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.cancelDial()
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return conn.Close()
}

func (c *wsChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *wsChannel) run() {
	defer close(c.events)
	defer c.cancelDial()

	conn, _, err := c.dialer.DialContext(c.dialCtx, c.endpoint, nil)
	if err != nil {
		if c.isClosed() {
			c.emit(Closed(websocket.CloseNormalClosure, ""))
			return
		}
		c.emit(Failed(err))
		c.emit(Closed(websocket.CloseAbnormalClosure, err.Error()))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		c.emit(Closed(websocket.CloseNormalClosure, ""))
		return
	}
	c.conn = conn
	c.mu.Unlock()

	// Unblock ReadMessage when the owner goes away.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-c.ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c.emit(Open())
	c.readLoop(conn)
}

func (c *wsChannel) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure:
				c.emit(Closed(closeErr.Code, closeErr.Text))
			case c.isClosed():
				c.emit(Closed(websocket.CloseNormalClosure, ""))
			default:
				c.emit(Failed(err))
				c.emit(Closed(websocket.CloseAbnormalClosure, err.Error()))
			}
			return
		}
		if !c.emit(Message(string(data))) {
			return
		}
	}
}

// emit queues ev for the consumer. It reports false when the owner context
// is done and the event was dropped.
func (c *wsChannel) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}
