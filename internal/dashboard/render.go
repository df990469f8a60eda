package dashboard

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/bluerock/sales-hub/internal/stats"
)

// TextRenderer writes a plain-text dashboard view to w on every update.
type TextRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (t *TextRenderer) RenderStats(snap *stats.Snapshot, labels []RequestLabel) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "=== Sales Hub — %s ===\n", snap.AsOf.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Requests: %d total, %d pending, %d in progress, %d completed today, %d high priority\n",
		snap.Requests.Total, snap.Requests.Pending, snap.Requests.InProgress,
		snap.Requests.CompletedToday, snap.Requests.HighPriority)
	fmt.Fprintf(&b, "Leads: %d total (%d this week, %d this month)\n",
		snap.Leads.Total, snap.Leads.New7d, snap.Leads.New30d)
	fmt.Fprintf(&b, "Customers: %d total, growth %s\n",
		snap.Customers.Total, snap.Customers.Growth)
	fmt.Fprintf(&b, "Purchases: %d total, revenue %s this week (%s)\n",
		snap.Purchases.Total, humanize.CommafWithDigits(snap.Purchases.Revenue7d, 2),
		snap.Purchases.RevenueGrowth)

	if len(labels) > 0 {
		b.WriteString("Recent requests:\n")
		for _, l := range labels {
			fmt.Fprintf(&b, "  [%s] %s %s (%s, score %d) — %s\n",
				l.Request.Status, l.Request.SpecificService, l.Request.Phone,
				l.Request.Tier, l.Request.LeadScore, l.Age)
		}
	}

	fmt.Fprint(t.w, b.String())
}
