package requests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bluerock/sales-hub/internal/agents"
)

func newTestService(t *testing.T) (*Service, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	directory := agents.NewInMemoryDirectory(
		agents.Agent{ID: "agent-1", Name: "Dana"},
	)
	svc := NewService(repo, directory, nil, nil)
	return svc, repo
}

func submit(t *testing.T, svc *Service) *ServiceRequest {
	t.Helper()
	req, err := svc.Create(context.Background(), Submission{
		Phone:           "+254700000001",
		Category:        CategoryProducts,
		SpecificService: "fttx",
		Timeline:        TimelineImmediate,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return req
}

func TestCreateScoresAndStartsPending(t *testing.T) {
	svc, _ := newTestService(t)
	req := submit(t, svc)

	if req.Status != StatusPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	if req.LeadScore != 100 {
		t.Errorf("expected score 100, got %d", req.LeadScore)
	}
	if req.Tier != TierHigh {
		t.Errorf("expected high tier, got %s", req.Tier)
	}
	if req.ID == "" {
		t.Errorf("expected generated id")
	}
	if req.CreatedAt.IsZero() || !req.CreatedAt.Equal(req.UpdatedAt) {
		t.Errorf("expected created_at == updated_at, got %v / %v", req.CreatedAt, req.UpdatedAt)
	}
}

func TestCreateRejectsInvalidSubmission(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), Submission{
		Phone:    "+254700000001",
		Category: Category("plumbing"),
		Timeline: TimelineImmediate,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTransitionLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc)

	got, err := svc.Transition(ctx, req.ID, StatusInProgress)
	if err != nil {
		t.Fatalf("pending -> in_progress: %v", err)
	}
	if got.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}

	got, err = svc.Transition(ctx, req.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("in_progress -> completed: %v", err)
	}
	if got.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
}

func TestTransitionPendingDirectlyToCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	req := submit(t, svc)

	got, err := svc.Transition(context.Background(), req.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("pending -> completed: %v", err)
	}
	if got.Status != StatusCompleted || got.CompletedAt == nil {
		t.Fatalf("expected completed with timestamp, got %+v", got)
	}
}

func TestTransitionTerminalStatesAreDeadEnds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		req := submit(t, svc)
		if _, err := svc.Transition(ctx, req.ID, terminal); err != nil {
			t.Fatalf("pending -> %s: %v", terminal, err)
		}
		for _, target := range []Status{StatusInProgress, StatusCompleted, StatusCancelled} {
			_, err := svc.Transition(ctx, req.ID, target)
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Errorf("%s -> %s: expected InvalidTransitionError, got %v", terminal, target, err)
				continue
			}
			if invalid.From != terminal || invalid.To != target {
				t.Errorf("expected error %s -> %s, got %s -> %s", terminal, target, invalid.From, invalid.To)
			}
		}
	}
}

func TestTransitionPendingIsNeverATarget(t *testing.T) {
	svc, _ := newTestService(t)
	req := submit(t, svc)

	_, err := svc.Transition(context.Background(), req.ID, StatusPending)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != StatusPending || invalid.To != StatusPending {
		t.Errorf("expected pending -> pending rejection, got %s -> %s", invalid.From, invalid.To)
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)
	req := submit(t, svc)

	_, err := svc.Transition(context.Background(), req.ID, Status("archived"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTransitionUnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Transition(context.Background(), "no-such-id", StatusCancelled)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompletedAtIsWriteOnce(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, repo := newTestService(t)
	svc.WithClock(func() time.Time { return frozen })

	req := submit(t, svc)
	if _, err := svc.Transition(context.Background(), req.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.CompletedAt == nil || !stored.CompletedAt.Equal(frozen) {
		t.Fatalf("expected completed_at %v, got %v", frozen, stored.CompletedAt)
	}
}

func TestAssignKnownAgent(t *testing.T) {
	svc, _ := newTestService(t)
	req := submit(t, svc)

	got, err := svc.Assign(context.Background(), req.ID, "agent-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.AssignedAgentID == nil || *got.AssignedAgentID != "agent-1" {
		t.Fatalf("expected agent-1 assigned, got %v", got.AssignedAgentID)
	}
}

func TestAssignUnknownAgent(t *testing.T) {
	svc, _ := newTestService(t)
	req := submit(t, svc)

	_, err := svc.Assign(context.Background(), req.ID, "agent-99")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["agent_id"]; !ok {
		t.Errorf("expected agent_id field, got %v", verr.Fields)
	}
}

func TestAssignTerminalRequestRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc)
	if _, err := svc.Transition(ctx, req.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := svc.Assign(ctx, req.ID, "agent-1")
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestAnnotateAnyState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	req := submit(t, svc)
	if _, err := svc.Transition(ctx, req.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := svc.Annotate(ctx, req.ID, "customer confirmed install date")
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if got.Notes != "customer confirmed install date" {
		t.Fatalf("expected notes to be updated, got %q", got.Notes)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	i := 0
	svc.WithClock(func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	})

	first := submit(t, svc)
	second, err := svc.Create(ctx, Submission{
		Phone:           "+254700000002",
		Category:        CategorySupport,
		SpecificService: "call",
		Timeline:        TimelineJustBrowsing,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Transition(ctx, second.ID, StatusInProgress); err != nil {
		t.Fatalf("transition: %v", err)
	}

	all, err := svc.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(all))
	}
	if all[0].ID != second.ID {
		t.Errorf("expected most recent first, got %s first", all[0].ID)
	}

	tier := TierHigh
	high, err := svc.List(ctx, ListFilter{Priority: &tier})
	if err != nil {
		t.Fatalf("list high: %v", err)
	}
	if len(high) != 1 || high[0].ID != first.ID {
		t.Fatalf("expected only the high-tier request, got %d", len(high))
	}

	status := StatusInProgress
	open, err := svc.List(ctx, ListFilter{Status: &status})
	if err != nil {
		t.Fatalf("list in_progress: %v", err)
	}
	if len(open) != 1 || open[0].ID != second.ID {
		t.Fatalf("expected only the in_progress request, got %d", len(open))
	}
}

func TestParseListFilter(t *testing.T) {
	filter, err := ParseListFilter("pending", "products-and-packages", "high", "50")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if filter.Status == nil || *filter.Status != StatusPending {
		t.Errorf("expected pending status filter")
	}
	if filter.Category == nil || *filter.Category != CategoryProducts {
		t.Errorf("expected products category filter")
	}
	if filter.Priority == nil || *filter.Priority != TierHigh {
		t.Errorf("expected high tier filter")
	}
	if filter.Limit != 50 {
		t.Errorf("expected limit 50, got %d", filter.Limit)
	}

	_, err = ParseListFilter("archived", "", "", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = ParseListFilter("", "", "", "-3")
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bad limit, got %v", err)
	}
}

func TestEffectiveLimitBounds(t *testing.T) {
	if got := (ListFilter{}).EffectiveLimit(); got != DefaultListLimit {
		t.Errorf("expected default limit, got %d", got)
	}
	if got := (ListFilter{Limit: 500}).EffectiveLimit(); got != MaxListLimit {
		t.Errorf("expected cap, got %d", got)
	}
	if got := (ListFilter{Limit: 7}).EffectiveLimit(); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}
