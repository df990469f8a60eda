package dashboard

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluerock/sales-hub/internal/requests"
	"github.com/bluerock/sales-hub/internal/stats"
)

func TestTextRendererOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf)

	snap := &stats.Snapshot{
		AsOf: time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC),
		Requests: stats.RequestStats{
			CollectionStats: stats.CollectionStats{Total: 12},
			Pending:         4,
			HighPriority:    2,
		},
		Customers: stats.CustomerStats{
			CollectionStats: stats.CollectionStats{Total: 80},
			Growth:          "+25%",
		},
		Purchases: stats.PurchaseStats{Total: 9, Revenue7d: 1250.5, RevenueGrowth: "+10%"},
	}
	labels := []RequestLabel{{
		Request: requests.ServiceRequest{
			Phone:           "+254700000001",
			SpecificService: "fttx",
			Status:          requests.StatusPending,
			Tier:            requests.TierHigh,
			LeadScore:       100,
		},
		Age: "3 minutes ago",
	}}

	r.RenderStats(snap, labels)

	out := buf.String()
	require.Contains(t, out, "12 total")
	require.Contains(t, out, "4 pending")
	require.Contains(t, out, "2 high priority")
	require.Contains(t, out, "growth +25%")
	require.Contains(t, out, "1,250.5")
	require.Contains(t, out, "fttx")
	require.Contains(t, out, "3 minutes ago")
}
