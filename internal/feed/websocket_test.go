package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serverEnd is how pushServer finishes a connection after its frames.
type serverEnd int

const (
	// endClose sends a normal close frame.
	endClose serverEnd = iota
	// endWait keeps reading until the client goes away.
	endWait
	// endDrop kills the TCP connection without a close frame.
	endDrop
)

// pushServer upgrades every connection, writes frames in order and then
// finishes the connection as end says.
func pushServer(t *testing.T, frames []string, end serverEnd) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ConsolePath {
			http.NotFound(w, r)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		switch end {
		case endClose:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			conn.ReadMessage()
		case endDrop:
			conn.UnderlyingConn().Close()
		default:
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

// collect drains ch until it is closed or the timeout expires.
func collect(t *testing.T, ch <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("event queue not closed within %v, got %d events", timeout, len(out))
			return out
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/siebog/console", Endpoint("localhost:8080"))
	assert.Equal(t, "ws://example.org/siebog/console", Endpoint("example.org"))
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "open", EventOpen.String())
	assert.Equal(t, "message", EventMessage.String())
	assert.Equal(t, "close", EventClose.String())
	assert.Equal(t, "error", EventError.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}

func TestDial_DeliversFramesInOrder(t *testing.T) {
	frames := []string{"agent-1 registered", `{"not":"parsed"}`, "agent-1 deregistered"}
	srv := pushServer(t, frames, endClose)

	ch := Dial(context.Background(), Endpoint(hostOf(srv)))
	events := collect(t, ch.Events(), 5*time.Second)

	require.Equal(t, []EventKind{EventOpen, EventMessage, EventMessage, EventMessage, EventClose}, kinds(events))
	for i, f := range frames {
		assert.Equal(t, f, events[i+1].Data)
	}
	last := events[len(events)-1]
	assert.Equal(t, websocket.CloseNormalClosure, last.Code)
	assert.Equal(t, "bye", last.Reason)
}

func TestDial_DroppedMidStream(t *testing.T) {
	srv := pushServer(t, []string{"agent-1 registered", "agent-2 registered"}, endDrop)

	ch := Dial(context.Background(), Endpoint(hostOf(srv)))
	events := collect(t, ch.Events(), 5*time.Second)

	require.Equal(t, []EventKind{EventOpen, EventMessage, EventMessage, EventError, EventClose}, kinds(events))
	assert.Equal(t, "agent-1 registered", events[1].Data)
	assert.Equal(t, "agent-2 registered", events[2].Data)
	assert.Error(t, events[3].Err)
	assert.Equal(t, websocket.CloseAbnormalClosure, events[4].Code)
}

func TestDial_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := hostOf(srv)
	srv.Close()

	ch := Dial(context.Background(), Endpoint(host))
	events := collect(t, ch.Events(), 5*time.Second)

	require.Equal(t, []EventKind{EventError, EventClose}, kinds(events))
	assert.NotEmpty(t, events[0].Data)
	assert.Error(t, events[0].Err)
	assert.Equal(t, websocket.CloseAbnormalClosure, events[1].Code)
}

func TestDial_HandshakeRejected(t *testing.T) {
	srv := pushServer(t, nil, endClose)

	ch := Dial(context.Background(), "ws://"+hostOf(srv)+"/elsewhere")
	events := collect(t, ch.Events(), 5*time.Second)

	assert.Equal(t, []EventKind{EventError, EventClose}, kinds(events))
}

func TestChannel_LocalClose(t *testing.T) {
	srv := pushServer(t, []string{"hello"}, endWait)

	ch := Dial(context.Background(), Endpoint(hostOf(srv)))

	var events []Event
	for ev := range ch.Events() {
		events = append(events, ev)
		if ev.Kind == EventMessage {
			require.NoError(t, ch.Close())
		}
	}

	require.Equal(t, []EventKind{EventOpen, EventMessage, EventClose}, kinds(events))
	assert.Equal(t, "hello", events[1].Data)
	assert.NoError(t, ch.Close(), "second close is a no-op")
}

func TestChannel_CloseBeforeConnected(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	ch := Dial(context.Background(), Endpoint(hostOf(srv)))
	require.NoError(t, ch.Close())

	events := collect(t, ch.Events(), 5*time.Second)
	assert.Equal(t, []EventKind{EventClose}, kinds(events))
}

func TestDialer_Factory(t *testing.T) {
	srv := pushServer(t, []string{"x"}, endClose)

	factory := Dialer(WithQueueSize(1))
	ch := factory(context.Background(), Endpoint(hostOf(srv)))
	events := collect(t, ch.Events(), 5*time.Second)

	assert.Equal(t, []EventKind{EventOpen, EventMessage, EventClose}, kinds(events))
}
