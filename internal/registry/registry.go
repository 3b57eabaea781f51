// Package registry keeps the client-side list of running agents. The
// registry owns the list; views only read it.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/siebog/console/internal/logger"
	"github.com/siebog/console/internal/model"
)

// RunningPath is the REST path listing running agents.
const RunningPath = "/api/agents/running"

// Registry is an ordered, concurrency-safe list of running agents.
type Registry struct {
	mu     sync.RWMutex
	agents []model.Agent

	baseURL string
	client  *http.Client
	log     *logger.Entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithBaseURL sets the base URL of the agent REST API used by Refresh.
func WithBaseURL(base string) Option {
	return func(r *Registry) {
		r.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient overrides the HTTP client used by Refresh.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) {
		if c != nil {
			r.client = c
		}
	}
}

// WithLogger sets the log entry used by Watch.
func WithLogger(entry *logger.Entry) Option {
	return func(r *Registry) {
		if entry != nil {
			r.log = entry
		}
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger.Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Agents returns a snapshot of the current list.
func (r *Registry) Agents() []model.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Len returns the number of agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Replace swaps the whole list.
func (r *Registry) Replace(agents []model.Agent) {
	next := make([]model.Agent, len(agents))
	copy(next, agents)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = next
}

// Add appends an agent.
func (r *Registry) Add(a model.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = append(r.agents, a)
}

// Remove deletes the first agent with the given AID and reports whether one
// was found.
func (r *Registry) Remove(aid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.agents {
		if a.AID() == aid {
			r.agents = append(r.agents[:i:i], r.agents[i+1:]...)
			return true
		}
	}
	return false
}

// Refresh replaces the list with the server's running agents.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.baseURL == "" {
		return fmt.Errorf("registry base URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+RunningPath, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch running agents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch running agents: unexpected status %s", resp.Status)
	}

	var agents []model.Agent
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		return fmt.Errorf("failed to decode running agents: %w", err)
	}

	r.Replace(agents)
	return nil
}

// Watch refreshes immediately and then every interval until ctx is done.
// Failures are logged and the previous list is kept.
func (r *Registry) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	r.refreshAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshAndLog(ctx)
		}
	}
}

func (r *Registry) refreshAndLog(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.log.WithError(err).Warn("agent refresh failed")
	}
}
