// Package feed implements the console push channel: a WebSocket connection
// whose open, message, close and error notifications are delivered as
// discrete Events through a single-consumer FIFO queue.
package feed

import (
	"context"
	"net/url"
)

// ConsolePath is the path of the console push endpoint.
const ConsolePath = "/siebog/console"

// EventKind discriminates channel notifications.
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventClose
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification from a push channel.
type Event struct {
	Kind EventKind
	// Data is the opaque frame payload for EventMessage and the error
	// detail for EventError.
	Data string
	// Code and Reason are set on EventClose.
	Code   int
	Reason string
	// Err is the underlying error for EventError.
	Err error
}

// Open returns an open notification.
func Open() Event { return Event{Kind: EventOpen} }

// Message returns a message notification carrying payload.
func Message(payload string) Event { return Event{Kind: EventMessage, Data: payload} }

// Closed returns a close notification.
func Closed(code int, reason string) Event {
	return Event{Kind: EventClose, Code: code, Reason: reason}
}

// Failed returns an error notification wrapping err.
func Failed(err error) Event {
	ev := Event{Kind: EventError, Err: err}
	if err != nil {
		ev.Data = err.Error()
	}
	return ev
}

// Channel is a receive-only push channel. Events are delivered in arrival
// order on a single queue that is closed after the final EventClose.
type Channel interface {
	Events() <-chan Event
	Close() error
}

// Factory opens a push channel to endpoint.
type Factory func(ctx context.Context, endpoint string) Channel

// Endpoint returns the console push endpoint for host, e.g.
// ws://localhost:8080/siebog/console.
func Endpoint(host string) string {
	u := url.URL{Scheme: "ws", Host: host, Path: ConsolePath}
	return u.String()
}
