package requests

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a listing. Nil fields are not applied; filters combine
// with logical AND. Priority filters on the tier, not the stricter
// high-priority boolean used by headline stats.
type ListFilter struct {
	Status   *Status
	Category *Category
	Priority *Tier
	Limit    int
}

const (
	// DefaultListLimit applies when the caller does not ask for a limit.
	DefaultListLimit = 20
	// MaxListLimit caps a listing regardless of what the caller asks for.
	MaxListLimit = 100
)

// EffectiveLimit resolves the requested limit against the default and cap.
func (f ListFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		return MaxListLimit
	}
	return f.Limit
}

// Repository defines the persistence collaborator for service requests.
// UpdateStatus and Assign must validate against the currently persisted state
// so that two racing mutations cannot both win.
type Repository interface {
	Create(ctx context.Context, req *ServiceRequest) error
	GetByID(ctx context.Context, id string) (*ServiceRequest, error)
	List(ctx context.Context, filter ListFilter) ([]*ServiceRequest, error)
	// UpdateStatus atomically moves id to target iff its current status is in
	// allowedFrom. Returns ErrNotFound for unknown ids and
	// *InvalidTransitionError when the current state forbids the move.
	UpdateStatus(ctx context.Context, id string, target Status, allowedFrom []Status, now time.Time) (*ServiceRequest, error)
	// Assign sets the agent reference; only legal while the request is open.
	Assign(ctx context.Context, id string, agentID string, now time.Time) (*ServiceRequest, error)
	// SetNotes replaces the free-text notes; legal in any state.
	SetNotes(ctx context.Context, id string, notes string, now time.Time) (*ServiceRequest, error)
}

// InMemoryRepository keeps requests in a map. It backs tests and local
// development; all mutations are serialized under one lock, which also gives
// the read-validate-write guarantee the lifecycle needs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	requests map[string]*ServiceRequest
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{requests: make(map[string]*ServiceRequest)}
}

// Create stores a new request, assigning an id when the caller left it empty.
func (r *InMemoryRepository) Create(ctx context.Context, req *ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

// GetByID returns a copy of the stored request.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*ServiceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

// List returns matching requests most-recent-first by creation time.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*ServiceRequest, error) {
	r.mu.RLock()
	matched := make([]*ServiceRequest, 0)
	for _, req := range r.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && req.Category != *filter.Category {
			continue
		}
		if filter.Priority != nil && req.Tier != *filter.Priority {
			continue
		}
		cp := *req
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit := filter.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// UpdateStatus validates the transition against the current state under the
// write lock, so concurrent cancel/complete races resolve to exactly one
// winner.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, target Status, allowedFrom []Status, now time.Time) (*ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !statusIn(req.Status, allowedFrom) {
		return nil, &InvalidTransitionError{From: req.Status, To: target}
	}
	req.Status = target
	req.UpdatedAt = now
	if target == StatusCompleted && req.CompletedAt == nil {
		completed := now
		req.CompletedAt = &completed
	}
	cp := *req
	return &cp, nil
}

// Assign sets the agent reference on an open request.
func (r *InMemoryRepository) Assign(ctx context.Context, id string, agentID string, now time.Time) (*ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status.Terminal() {
		return nil, &InvalidTransitionError{From: req.Status, To: req.Status}
	}
	req.AssignedAgentID = &agentID
	req.UpdatedAt = now
	cp := *req
	return &cp, nil
}

// SetNotes replaces the notes text.
func (r *InMemoryRepository) SetNotes(ctx context.Context, id string, notes string, now time.Time) (*ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	req.Notes = notes
	req.UpdatedAt = now
	cp := *req
	return &cp, nil
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
