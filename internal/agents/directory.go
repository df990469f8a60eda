// Package agents resolves agent references for request assignment. The core
// never owns agent records; it only checks that a reference points at a real
// agent in the hosting application's directory.
package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrAgentNotFound is returned when an agent id does not resolve.
var ErrAgentNotFound = errors.New("agent not found")

// Agent is the minimal view of an agent the core needs.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Directory resolves agent ids to agents.
type Directory interface {
	Resolve(ctx context.Context, id string) (*Agent, error)
}

// InMemoryDirectory is a fixed directory for tests and local development.
type InMemoryDirectory struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewInMemoryDirectory seeds a directory with the given agents.
func NewInMemoryDirectory(seed ...Agent) *InMemoryDirectory {
	d := &InMemoryDirectory{agents: make(map[string]Agent, len(seed))}
	for _, a := range seed {
		d.agents[a.ID] = a
	}
	return d
}

// Add registers an agent.
func (d *InMemoryDirectory) Add(a Agent) {
	d.mu.Lock()
	d.agents[a.ID] = a
	d.mu.Unlock()
}

// Resolve looks up an agent by id.
func (d *InMemoryDirectory) Resolve(ctx context.Context, id string) (*Agent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return &a, nil
}

// pgRow is the single-row query surface the directory needs from pgx.
type pgRow interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDirectory resolves agents from the agents table.
type PostgresDirectory struct {
	db pgRow
}

// NewPostgresDirectory creates a directory backed by a pgx pool (or mock).
func NewPostgresDirectory(db pgRow) *PostgresDirectory {
	if db == nil {
		panic("agents: db required")
	}
	return &PostgresDirectory{db: db}
}

// Resolve looks up an agent by id.
func (d *PostgresDirectory) Resolve(ctx context.Context, id string) (*Agent, error) {
	var a Agent
	var createdAt time.Time
	err := d.db.QueryRow(ctx,
		`SELECT id::text, name, COALESCE(phone, ''), created_at FROM agents WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Phone, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("agents: resolve: %w", err)
	}
	return &a, nil
}
