// Package stats computes the windowed aggregates and derived growth metrics
// the internal dashboard polls for. Every field of a snapshot is evaluated
// against a single as-of instant so metrics within one response cannot skew
// against each other.
package stats

import (
	"fmt"
	"math"
	"time"
)

// CollectionStats is the common shape reported for every tracked collection:
// total population plus trailing 7- and 30-day creation counts. The trailing
// window is half-open, (asOf − N days, asOf].
type CollectionStats struct {
	Total  int64 `json:"total"`
	New7d  int64 `json:"new_7d"`
	New30d int64 `json:"new_30d"`
}

// RequestStats extends the common shape with the service-request specifics.
type RequestStats struct {
	CollectionStats
	Pending        int64            `json:"pending"`
	InProgress     int64            `json:"in_progress"`
	CompletedToday int64            `json:"completed_today"`
	HighPriority   int64            `json:"high_priority"`
	ByCategory     map[string]int64 `json:"by_category"`
}

// CustomerStats carries the derived growth percentage alongside the counts.
type CustomerStats struct {
	CollectionStats
	Growth string `json:"growth"`
}

// PurchaseStats reports revenue sums instead of creation counts for the
// trailing windows.
type PurchaseStats struct {
	Total         int64   `json:"total"`
	Revenue7d     float64 `json:"revenue_7d"`
	Revenue30d    float64 `json:"revenue_30d"`
	RevenueGrowth string  `json:"revenue_growth"`
}

// Snapshot is the full dashboard stats payload.
type Snapshot struct {
	AsOf      time.Time       `json:"as_of"`
	Requests  RequestStats    `json:"requests"`
	Leads     CollectionStats `json:"leads"`
	Customers CustomerStats   `json:"customers"`
	Purchases PurchaseStats   `json:"purchases"`
}

// Growth compares a trailing week against the trailing month's weekly
// average: (weekly / (monthly/4) − 1) × 100, rounded to the nearest integer
// and rendered with an explicit sign for non-negative values. When either
// input is zero the literal "0%" is returned; that guard conflates "no data"
// with "no growth" but is preserved for dashboard compatibility.
func Growth(weekly, monthly float64) string {
	if weekly == 0 || monthly == 0 {
		return "0%"
	}
	pct := int(math.Round((weekly/(monthly/4) - 1) * 100))
	return fmt.Sprintf("%+d%%", pct)
}

// Activity is one entry of the dashboard's recent-activity feed, merged
// across requests, leads and purchases.
type Activity struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Amount      *float64  `json:"amount,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
