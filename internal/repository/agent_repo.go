package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/siebog/console/internal/model"
)

// AgentRepository provides data access for running agents.
type AgentRepository struct {
	db *sql.DB
}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(db *sql.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// Create inserts a running agent. It returns model.ErrAgentExists when an
// agent with the same name and host is already registered.
func (r *AgentRepository) Create(ctx context.Context, agent *model.Agent) error {
	query := `
		INSERT INTO agents (name, host, class, started_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, agent.Name, agent.Host, agent.Class, agent.StartedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return model.ErrAgentExists
		}
		return fmt.Errorf("failed to create agent: %w", err)
	}

	return nil
}

// List returns all running agents in registration order.
func (r *AgentRepository) List(ctx context.Context) ([]model.Agent, error) {
	query := `
		SELECT name, host, class, started_at
		FROM agents
		ORDER BY started_at ASC, rowid ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := []model.Agent{}
	for rows.Next() {
		var a model.Agent
		if err := rows.Scan(&a.Name, &a.Host, &a.Class, &a.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}

	return agents, nil
}

// Delete removes an agent by name and host.
func (r *AgentRepository) Delete(ctx context.Context, name, host string) error {
	query := `DELETE FROM agents WHERE name = ? AND host = ?`

	result, err := r.db.ExecContext(ctx, query, name, host)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrAgentNotFound
	}

	return nil
}

// Exists checks if an agent is registered.
func (r *AgentRepository) Exists(ctx context.Context, name, host string) (bool, error) {
	query := `SELECT 1 FROM agents WHERE name = ? AND host = ? LIMIT 1`

	var exists int
	err := r.db.QueryRowContext(ctx, query, name, host).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check agent existence: %w", err)
	}

	return true, nil
}
