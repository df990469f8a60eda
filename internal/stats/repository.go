package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
)

// statsDB is the query surface the repository needs from a pgxpool.Pool (or
// a pgxmock pool in tests).
type statsDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads the request population and its sibling collections.
// Queries never take locks that would block lifecycle writes; a snapshot may
// trail the latest mutation slightly, which the polling dashboard tolerates.
type Repository struct {
	db statsDB
}

// NewRepository creates a stats repository.
func NewRepository(db statsDB) *Repository {
	if db == nil {
		panic("stats: pgx pool required")
	}
	return &Repository{db: db}
}

// Snapshot computes every metric against the same asOf instant.
func (r *Repository) Snapshot(ctx context.Context, asOf time.Time) (*Snapshot, error) {
	asOf = asOf.UTC()
	weekAgo := asOf.AddDate(0, 0, -7)
	monthAgo := asOf.AddDate(0, 0, -30)
	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	snap := &Snapshot{AsOf: asOf}

	if err := r.collectionCounts(ctx, "service_requests", asOf, weekAgo, monthAgo, &snap.Requests.CollectionStats); err != nil {
		return nil, err
	}

	counts := []struct {
		dest  *int64
		query string
		args  []any
	}{
		{&snap.Requests.Pending,
			`SELECT COUNT(*) FROM service_requests WHERE status = 'pending' AND created_at <= $1`,
			[]any{asOf}},
		{&snap.Requests.InProgress,
			`SELECT COUNT(*) FROM service_requests WHERE status = 'in_progress' AND created_at <= $1`,
			[]any{asOf}},
		{&snap.Requests.CompletedToday,
			`SELECT COUNT(*) FROM service_requests WHERE status = 'completed' AND completed_at >= $1 AND completed_at <= $2`,
			[]any{dayStart, asOf}},
		{&snap.Requests.HighPriority,
			`SELECT COUNT(*) FROM service_requests WHERE tier = 'high' AND timeline = 'immediate' AND created_at <= $1`,
			[]any{asOf}},
	}
	for _, c := range counts {
		if err := r.db.QueryRow(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats: request counts: %w", err)
		}
	}

	byCategory, err := r.categoryBreakdown(ctx, asOf)
	if err != nil {
		return nil, err
	}
	snap.Requests.ByCategory = byCategory

	if err := r.collectionCounts(ctx, "leads", asOf, weekAgo, monthAgo, &snap.Leads); err != nil {
		return nil, err
	}
	if err := r.collectionCounts(ctx, "customers", asOf, weekAgo, monthAgo, &snap.Customers.CollectionStats); err != nil {
		return nil, err
	}
	snap.Customers.Growth = Growth(float64(snap.Customers.New7d), float64(snap.Customers.New30d))

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM purchases WHERE created_at <= $1`, asOf,
	).Scan(&snap.Purchases.Total); err != nil {
		return nil, fmt.Errorf("stats: purchases total: %w", err)
	}
	if err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM purchases WHERE created_at > $1 AND created_at <= $2`,
		weekAgo, asOf,
	).Scan(&snap.Purchases.Revenue7d); err != nil {
		return nil, fmt.Errorf("stats: revenue 7d: %w", err)
	}
	if err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM purchases WHERE created_at > $1 AND created_at <= $2`,
		monthAgo, asOf,
	).Scan(&snap.Purchases.Revenue30d); err != nil {
		return nil, fmt.Errorf("stats: revenue 30d: %w", err)
	}
	snap.Purchases.RevenueGrowth = Growth(snap.Purchases.Revenue7d, snap.Purchases.Revenue30d)

	return snap, nil
}

// collectionCounts fills the common total/7d/30d shape for one table.
func (r *Repository) collectionCounts(ctx context.Context, table string, asOf, weekAgo, monthAgo time.Time, dest *CollectionStats) error {
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE created_at <= $1`, asOf,
	).Scan(&dest.Total); err != nil {
		return fmt.Errorf("stats: %s total: %w", table, err)
	}
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE created_at > $1 AND created_at <= $2`, weekAgo, asOf,
	).Scan(&dest.New7d); err != nil {
		return fmt.Errorf("stats: %s 7d: %w", table, err)
	}
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE created_at > $1 AND created_at <= $2`, monthAgo, asOf,
	).Scan(&dest.New30d); err != nil {
		return fmt.Errorf("stats: %s 30d: %w", table, err)
	}
	return nil
}

func (r *Repository) categoryBreakdown(ctx context.Context, asOf time.Time) (map[string]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, COUNT(*) FROM service_requests WHERE created_at <= $1 GROUP BY category`, asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("stats: category breakdown: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("stats: category scan: %w", err)
		}
		out[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: category rows: %w", err)
	}
	return out, nil
}

// RecentActivity merges the newest requests, leads and purchases into one
// most-recent-first feed for the dashboard activity panel.
func (r *Repository) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 20 {
		limit = 20
	}

	var merged []Activity

	rows, err := r.db.Query(ctx,
		`SELECT id::text, specific_service, phone, created_at FROM service_requests ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("stats: recent requests: %w", err)
	}
	for rows.Next() {
		var a Activity
		var service, phone string
		if err := rows.Scan(&a.ID, &service, &phone, &a.OccurredAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("stats: recent requests scan: %w", err)
		}
		a.Kind = "request"
		a.Description = service + " requested by " + phone
		merged = append(merged, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: recent requests rows: %w", err)
	}

	rows, err = r.db.Query(ctx,
		`SELECT id::text, status, created_at FROM leads ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("stats: recent leads: %w", err)
	}
	for rows.Next() {
		var a Activity
		var status string
		if err := rows.Scan(&a.ID, &status, &a.OccurredAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("stats: recent leads scan: %w", err)
		}
		a.Kind = "lead"
		a.Description = "lead " + status
		merged = append(merged, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: recent leads rows: %w", err)
	}

	rows, err = r.db.Query(ctx,
		`SELECT id::text, product_name, total_amount, created_at FROM purchases ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("stats: recent purchases: %w", err)
	}
	for rows.Next() {
		var a Activity
		var product string
		var amount float64
		if err := rows.Scan(&a.ID, &product, &amount, &a.OccurredAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("stats: recent purchases scan: %w", err)
		}
		a.Kind = "purchase"
		a.Description = product + " purchased"
		a.Amount = &amount
		merged = append(merged, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: recent purchases rows: %w", err)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].OccurredAt.After(merged[j].OccurredAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
