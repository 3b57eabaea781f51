// Package console implements the live console view: a timestamped,
// append-only log of messages pushed by the server, a borrowed list of
// running agents and the expanded/collapsed state of both sections.
package console

import (
	"context"
	"time"

	"github.com/siebog/console/internal/feed"
	"github.com/siebog/console/internal/logger"
	"github.com/siebog/console/internal/model"
)

// DefaultHost is used when no host is configured.
const DefaultHost = "localhost:8080"

// TimeLayout renders wall-clock time as zero-padded HH:MM:SS.
const TimeLayout = "15:04:05"

// AgentList is a read-only view of an agent list owned elsewhere. Each call
// reflects the owner's current contents.
type AgentList interface {
	Agents() []model.Agent
	Len() int
}

// Sections holds the expanded state of the two console sections.
type Sections struct {
	Messages bool
	Agents   bool
}

// DefaultSections returns both sections expanded.
func DefaultSections() Sections {
	return Sections{Messages: true, Agents: true}
}

// FormatLine renders a display line as "HH:MM:SS - payload".
func FormatLine(t time.Time, payload string) string {
	return t.Format(TimeLayout) + " - " + payload
}

type options struct {
	host string
	now  func() time.Time
	log  *logger.Entry
}

// Option configures a View.
type Option func(*options)

// WithHost sets the host the push endpoint is derived from.
func WithHost(host string) Option {
	return func(o *options) {
		if host != "" {
			o.host = host
		}
	}
}

// WithClock replaces time.Now for line timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the diagnostic log sink.
func WithLogger(entry *logger.Entry) Option {
	return func(o *options) {
		if entry != nil {
			o.log = entry
		}
	}
}

// View is the live console. It is not safe for concurrent use: all
// handlers and accessors must run on one goroutine, which is what Run and
// the terminal UI guarantee.
type View struct {
	sections Sections
	agents   AgentList
	lines    []string

	endpoint string
	channel  feed.Channel

	now func() time.Time
	log *logger.Entry
}

// New creates a View with both sections expanded and an empty log, borrows
// agents without copying it and opens a push channel through factory to
// ws://<host>/siebog/console.
func New(ctx context.Context, factory feed.Factory, agents AgentList, opts ...Option) *View {
	o := options{
		host: DefaultHost,
		now:  time.Now,
		log:  logger.Named("console"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	v := &View{
		sections: DefaultSections(),
		agents:   agents,
		lines:    []string{},
		endpoint: feed.Endpoint(o.host),
		now:      o.now,
		log:      o.log,
	}
	if factory != nil {
		v.channel = factory(ctx, v.endpoint)
	}
	return v
}

// OnMessage appends a timestamped line for payload.
func (v *View) OnMessage(payload string) {
	v.lines = append(v.lines, FormatLine(v.now(), payload))
}

// OnOpen logs that the channel opened.
func (v *View) OnOpen() {
	v.log.Info("WebSocket for console connection opened.")
}

// OnClose logs that the channel closed. The connection is not re-established.
func (v *View) OnClose(ev feed.Event) {
	v.log.WithFields(logger.Fields{
		"code":   ev.Code,
		"reason": ev.Reason,
	}).Info("WebSocket for console connection closed.")
}

// OnError logs a channel error. The connection is not retried.
func (v *View) OnError(ev feed.Event) {
	v.log.Warnf("WebSocket for console connection error: %s", ev.Data)
}

// Dispatch routes ev to its handler.
func (v *View) Dispatch(ev feed.Event) {
	switch ev.Kind {
	case feed.EventOpen:
		v.OnOpen()
	case feed.EventMessage:
		v.OnMessage(ev.Data)
	case feed.EventClose:
		v.OnClose(ev)
	case feed.EventError:
		v.OnError(ev)
	}
}

// Events returns the channel's event queue, or nil when the view has no
// channel. Consumers that pull from it must hand every event to Dispatch.
func (v *View) Events() <-chan feed.Event {
	if v.channel == nil {
		return nil
	}
	return v.channel.Events()
}

// Run consumes the channel's events one at a time, in delivery order, until
// the channel is exhausted or ctx is done. after, if set, is called once per
// dispatched event.
func (v *View) Run(ctx context.Context, after func(feed.Event)) error {
	events := v.Events()
	if events == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			v.Dispatch(ev)
			if after != nil {
				after(ev)
			}
		}
	}
}

// Close closes the push channel. The close is reported through OnClose.
func (v *View) Close() error {
	if v.channel == nil {
		return nil
	}
	return v.channel.Close()
}

// Endpoint returns the push endpoint address.
func (v *View) Endpoint() string {
	return v.endpoint
}

// Lines returns a copy of the display log.
func (v *View) Lines() []string {
	out := make([]string, len(v.lines))
	copy(out, v.lines)
	return out
}

// Len returns the number of display lines.
func (v *View) Len() int {
	return len(v.lines)
}

// Line returns the i-th display line.
func (v *View) Line(i int) string {
	return v.lines[i]
}

// AgentList returns the borrowed agent list.
func (v *View) AgentList() AgentList {
	return v.agents
}

// Agents returns the current contents of the borrowed agent list.
func (v *View) Agents() []model.Agent {
	if v.agents == nil {
		return nil
	}
	return v.agents.Agents()
}

func (v *View) Sections() Sections {
	return v.sections
}

func (v *View) SetSections(s Sections) {
	v.sections = s
}

func (v *View) ToggleMessages() {
	v.sections.Messages = !v.sections.Messages
}

func (v *View) ToggleAgents() {
	v.sections.Agents = !v.sections.Agents
}
