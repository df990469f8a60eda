package stats

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bluerock/sales-hub/internal/observability/metrics"
	"github.com/bluerock/sales-hub/pkg/logging"
)

var tracer = otel.Tracer("saleshub/stats")

// Source computes a snapshot from the primary store.
type Source interface {
	Snapshot(ctx context.Context, asOf time.Time) (*Snapshot, error)
	RecentActivity(ctx context.Context, limit int) ([]Activity, error)
}

// Service serves dashboard snapshots, fronting the repository with a
// best-effort cache. Cache failures never fail a read.
type Service struct {
	source Source
	cache  *Cache
	logger *logging.Logger
	m      *metrics.IntakeMetrics
	now    func() time.Time
}

func NewService(source Source, cache *Cache, logger *logging.Logger, m *metrics.IntakeMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		source: source,
		cache:  cache,
		logger: logger,
		m:      m,
		now:    time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Current returns the snapshot as of now, served from cache when fresh.
func (s *Service) Current(ctx context.Context) (*Snapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.Get(ctx); err == nil {
			return snap, nil
		}
	}

	snap, err := s.At(ctx, s.now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.Warn("snapshot cache write failed", "error", err)
		}
	}
	return snap, nil
}

// At computes a snapshot anchored at an explicit instant, bypassing the
// cache so historical reads stay exact.
func (s *Service) At(ctx context.Context, asOf time.Time) (*Snapshot, error) {
	ctx, span := tracer.Start(ctx, "stats.snapshot",
		trace.WithAttributes(attribute.String("as_of", asOf.UTC().Format(time.RFC3339))))
	defer span.End()

	start := s.now()
	snap, err := s.source.Snapshot(ctx, asOf)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.m.ObserveSnapshotLatency(s.now().Sub(start).Seconds())
	return snap, nil
}

// RecentActivity returns the merged activity feed, newest first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	ctx, span := tracer.Start(ctx, "stats.recent_activity")
	defer span.End()

	return s.source.RecentActivity(ctx, limit)
}
