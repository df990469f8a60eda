package requests

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bluerock/sales-hub/internal/agents"
	"github.com/bluerock/sales-hub/internal/observability/metrics"
	"github.com/bluerock/sales-hub/pkg/logging"
)

var tracer = otel.Tracer("saleshub/requests")

// transitionSources maps each target status to the statuses it is reachable
// from. Transitions are monotonic, so a pending request may be completed
// directly without passing through in_progress; the terminal pair
// {completed, cancelled} has no outgoing edges.
var transitionSources = map[Status][]Status{
	StatusInProgress: {StatusPending},
	StatusCompleted:  {StatusPending, StatusInProgress},
	StatusCancelled:  {StatusPending, StatusInProgress},
}

// Service is the lifecycle controller. It validates submissions, computes the
// lead score once at creation, and enforces the status state graph on every
// mutation.
type Service struct {
	repo    Repository
	agents  agents.Directory
	logger  *logging.Logger
	metrics *metrics.IntakeMetrics
	now     func() time.Time
}

// NewService wires a lifecycle controller. Metrics may be nil.
func NewService(repo Repository, directory agents.Directory, logger *logging.Logger, m *metrics.IntakeMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:    repo,
		agents:  directory,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Create validates the submission, scores it and persists the new request in
// pending state.
func (s *Service) Create(ctx context.Context, sub Submission) (*ServiceRequest, error) {
	ctx, span := tracer.Start(ctx, "requests.create")
	defer span.End()

	if err := sub.Validate(); err != nil {
		return nil, err
	}

	score, tier := Score(sub.Category, sub.Timeline)
	now := s.now().UTC()
	req := &ServiceRequest{
		Phone:             strings.TrimSpace(sub.Phone),
		Category:          sub.Category,
		SpecificService:   sub.SpecificService,
		Timeline:          sub.Timeline,
		ContactPreference: sub.ContactPreference,
		IPAddress:         sub.IPAddress,
		UserAgent:         sub.UserAgent,
		LeadScore:         score,
		Tier:              tier,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, &TransientStoreError{Op: "create", Err: err}
	}

	span.SetAttributes(
		attribute.String("request.category", string(req.Category)),
		attribute.Int("request.lead_score", req.LeadScore),
	)
	s.metrics.ObserveSubmission(string(req.Category), string(req.Tier))
	s.logger.Info("service request created",
		"id", req.ID,
		"category", req.Category,
		"lead_score", req.LeadScore,
		"tier", req.Tier,
	)
	return req, nil
}

// Transition moves a request to target, validating against the persisted
// state at the moment of the update.
func (s *Service) Transition(ctx context.Context, id string, target Status) (*ServiceRequest, error) {
	ctx, span := tracer.Start(ctx, "requests.transition")
	defer span.End()

	if !target.Valid() {
		verr := &ValidationError{}
		verr.Add("status", "unknown status")
		return nil, verr
	}
	sources := transitionSources[target]
	if len(sources) == 0 {
		// pending is the initial state and never a transition target
		current, err := s.currentStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveTransition(string(target), "invalid")
		return nil, &InvalidTransitionError{From: current, To: target}
	}

	req, err := s.repo.UpdateStatus(ctx, id, target, sources, s.now().UTC())
	if err != nil {
		var invalid *InvalidTransitionError
		switch {
		case errors.Is(err, ErrNotFound), errors.As(err, &invalid):
			s.metrics.ObserveTransition(string(target), "rejected")
			return nil, err
		default:
			return nil, &TransientStoreError{Op: "transition", Err: err}
		}
	}

	s.metrics.ObserveTransition(string(target), "ok")
	s.logger.Info("service request transitioned", "id", id, "status", target)
	return req, nil
}

// Assign points a request at an agent. The reference is weak: the directory
// only confirms the agent exists, the core stores the id.
func (s *Service) Assign(ctx context.Context, id string, agentID string) (*ServiceRequest, error) {
	ctx, span := tracer.Start(ctx, "requests.assign")
	defer span.End()

	if strings.TrimSpace(agentID) == "" {
		verr := &ValidationError{}
		verr.Add("agent_id", "agent id is required")
		return nil, verr
	}
	if s.agents != nil {
		if _, err := s.agents.Resolve(ctx, agentID); err != nil {
			if errors.Is(err, agents.ErrAgentNotFound) {
				verr := &ValidationError{}
				verr.Add("agent_id", "unknown agent")
				return nil, verr
			}
			return nil, &TransientStoreError{Op: "assign", Err: err}
		}
	}

	req, err := s.repo.Assign(ctx, id, agentID, s.now().UTC())
	if err != nil {
		var invalid *InvalidTransitionError
		if errors.Is(err, ErrNotFound) || errors.As(err, &invalid) {
			return nil, err
		}
		return nil, &TransientStoreError{Op: "assign", Err: err}
	}
	s.logger.Info("service request assigned", "id", id, "agent_id", agentID)
	return req, nil
}

// Annotate sets the free-text notes. Allowed in any state.
func (s *Service) Annotate(ctx context.Context, id string, note string) (*ServiceRequest, error) {
	ctx, span := tracer.Start(ctx, "requests.annotate")
	defer span.End()

	req, err := s.repo.SetNotes(ctx, id, note, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &TransientStoreError{Op: "annotate", Err: err}
	}
	return req, nil
}

// List returns a bounded, filtered, most-recent-first projection.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*ServiceRequest, error) {
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, &TransientStoreError{Op: "list", Err: err}
	}
	return out, nil
}

func (s *Service) currentStatus(ctx context.Context, id string) (Status, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", &TransientStoreError{Op: "get", Err: err}
	}
	return req.Status, nil
}

// ParseListFilter builds a ListFilter from raw query values, rejecting
// unknown enum values with field-level detail.
func ParseListFilter(status, category, priority, limit string) (ListFilter, error) {
	var filter ListFilter
	verr := &ValidationError{}

	if status != "" {
		st := Status(status)
		if !st.Valid() {
			verr.Add("status", "unknown status")
		} else {
			filter.Status = &st
		}
	}
	if category != "" {
		cat := Category(category)
		if !cat.Valid() {
			verr.Add("category", "unknown service category")
		} else {
			filter.Category = &cat
		}
	}
	if priority != "" {
		tier := Tier(priority)
		if !tier.Valid() {
			verr.Add("priority", "unknown priority tier")
		} else {
			filter.Priority = &tier
		}
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			verr.Add("limit", "limit must be a positive integer")
		} else {
			filter.Limit = n
		}
	}
	if verr.Any() {
		return ListFilter{}, verr
	}
	return filter, nil
}
