package model

import "errors"

var (
	// ErrNameRequired is returned when an agent registration request is missing the name.
	ErrNameRequired = errors.New("agent name is required")

	// ErrAgentNotFound is returned when an agent is not registered.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentExists is returned when an agent with the same name is already running.
	ErrAgentExists = errors.New("agent already registered")
)
