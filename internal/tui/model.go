// Package tui renders a console.View in the terminal with Bubble Tea.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/siebog/console/internal/console"
	"github.com/siebog/console/internal/feed"
)

// agentRefresh is how often the agent section is redrawn; the registry is
// updated outside the UI loop.
const agentRefresh = time.Second

type eventMsg struct{ ev feed.Event }

type channelDoneMsg struct{}

type agentTickMsg struct{}

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	lineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the Bubble Tea model wrapping a console view. Every channel
// event is dispatched from Update, so the view is only touched on the
// Bubble Tea event loop.
type Model struct {
	view   *console.View
	width  int
	height int
	// scroll is the number of lines scrolled up from the newest message.
	scroll int
	ended  bool
}

// New creates a Model for view.
func New(view *console.View) Model {
	return Model{view: view, width: 80, height: 24}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.view.Events()), agentTick())
}

func waitForEvent(events <-chan feed.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return channelDoneMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func agentTick() tea.Cmd {
	return tea.Tick(agentRefresh, func(time.Time) tea.Msg { return agentTickMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.view.Dispatch(msg.ev)
		if msg.ev.Kind == feed.EventMessage && m.scroll > 0 {
			// Keep the same lines on screen while scrolled back.
			m.scroll++
		}
		return m, waitForEvent(m.view.Events())
	case channelDoneMsg:
		m.ended = true
		return m, nil
	case agentTickMsg:
		return m, agentTick()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampScroll()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.view.Close()
		return m, tea.Quit
	case "m":
		m.view.ToggleMessages()
	case "a":
		m.view.ToggleAgents()
	case "up", "k":
		m.scroll++
	case "down", "j":
		m.scroll--
	case "pgup":
		m.scroll += m.messageRows()
	case "pgdown":
		m.scroll -= m.messageRows()
	case "home", "g":
		m.scroll = m.view.Len()
	case "end", "G":
		m.scroll = 0
	}
	m.clampScroll()
	return m, nil
}

func (m *Model) clampScroll() {
	maxScroll := m.view.Len() - m.messageRows()
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// agentRows returns the rows given to the agent list body.
func (m Model) agentRows() int {
	if !m.view.Sections().Agents {
		return 0
	}
	n := len(m.view.Agents())
	if n == 0 {
		n = 1
	}
	if limit := m.height / 3; n > limit {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// messageRows returns the rows given to the message list body.
func (m Model) messageRows() int {
	// two section headers and the status line
	rows := m.height - 3 - m.agentRows()
	if rows < 1 {
		rows = 1
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	sections := m.view.Sections()
	var b strings.Builder

	b.WriteString(sectionHeader("Messages", m.view.Len(), sections.Messages))
	b.WriteByte('\n')
	if sections.Messages {
		for _, line := range m.visibleLines() {
			b.WriteString(lineStyle.Render(truncate(line, m.width)))
			b.WriteByte('\n')
		}
	}

	agents := m.view.Agents()
	b.WriteString(sectionHeader("Agents", len(agents), sections.Agents))
	b.WriteByte('\n')
	if sections.Agents {
		rows := m.agentRows()
		if len(agents) == 0 {
			b.WriteString(dimStyle.Render("  (none)"))
			b.WriteByte('\n')
		}
		for i, a := range agents {
			if i == rows {
				break
			}
			b.WriteString(lineStyle.Render(truncate("  "+a.String(), m.width)))
			b.WriteByte('\n')
		}
	}

	b.WriteString(statusStyle.Render(m.statusLine()))
	return b.String()
}

func (m Model) visibleLines() []string {
	n := m.view.Len()
	end := n - m.scroll
	start := end - m.messageRows()
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, m.view.Line(i))
	}
	return out
}

func (m Model) statusLine() string {
	status := m.view.Endpoint()
	if m.ended {
		status += " (disconnected)"
	}
	if m.scroll > 0 {
		status += fmt.Sprintf(" [-%d]", m.scroll)
	}
	return status + "  m: messages  a: agents  q: quit"
}

func sectionHeader(title string, count int, expanded bool) string {
	marker := "▸"
	if expanded {
		marker = "▾"
	}
	return headerStyle.Render(fmt.Sprintf("%s %s (%d)", marker, title, count))
}

// truncate cuts s to width cells in a single pass, ending with "…" when cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(view *console.View) error {
	_, err := tea.NewProgram(New(view), tea.WithAltScreen()).Run()
	return err
}
