package ws

import (
	"github.com/sirupsen/logrus"
)

// ConsoleHook publishes log entries to the console hub so connected
// consoles see server activity. Entries from the ws component are skipped
// to keep connection chatter off the console.
type ConsoleHook struct {
	hub    *Hub
	levels []logrus.Level
}

// NewConsoleHook creates a hook publishing entries at Info level and above.
func NewConsoleHook(hub *Hub) *ConsoleHook {
	return &ConsoleHook{
		hub: hub,
		levels: []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
			logrus.WarnLevel,
			logrus.InfoLevel,
		},
	}
}

// Levels implements logrus.Hook.
func (h *ConsoleHook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook.
func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	if component, _ := entry.Data["component"].(string); component == "ws" {
		return nil
	}
	h.hub.Publish(entry.Message)
	return nil
}
