package model

import (
	"strings"
	"time"
)

// Agent describes one running agent. Name and Host together form the
// agent identifier shown as name@host.
type Agent struct {
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Class     string    `json:"class"`
	StartedAt time.Time `json:"startedAt"`
}

// AID returns the agent identifier in name@host form. The host part is
// omitted when empty.
func (a Agent) AID() string {
	if a.Host == "" {
		return a.Name
	}
	return a.Name + "@" + a.Host
}

// String implements fmt.Stringer.
func (a Agent) String() string {
	if a.Class == "" {
		return a.AID()
	}
	return a.AID() + " (" + a.Class + ")"
}

// RegisterAgentRequest represents a request to register a running agent.
type RegisterAgentRequest struct {
	Name  string `json:"name" binding:"required"`
	Host  string `json:"host"`
	Class string `json:"class"`
}

// Validate validates the register request.
func (r *RegisterAgentRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	return nil
}
