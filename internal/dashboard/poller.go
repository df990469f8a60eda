package dashboard

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bluerock/sales-hub/internal/requests"
	"github.com/bluerock/sales-hub/internal/stats"
	"github.com/bluerock/sales-hub/pkg/logging"
)

// Renderer receives dashboard updates. Implementations draw a terminal view,
// push to a websocket, or record calls in tests.
type Renderer interface {
	RenderStats(snap *stats.Snapshot, labels []RequestLabel)
}

// RequestLabel pairs a request with its humanized age for display.
type RequestLabel struct {
	Request requests.ServiceRequest
	Age     string
}

// Poller drives the dashboard on two cadences: a full stats-and-listing
// fetch, and a cheaper label refresh that only recomputes relative ages so
// "3 minutes ago" stays current between fetches. On fetch failure the last
// successful data keeps being shown.
type Poller struct {
	client       *Client
	renderer     Renderer
	logger       *logging.Logger
	fetchEvery   time.Duration
	relabelEvery time.Duration
	listFilter   requests.ListFilter
	now          func() time.Time
	lastSnapshot *stats.Snapshot
	lastRequests []requests.ServiceRequest
}

func NewPoller(client *Client, renderer Renderer, logger *logging.Logger) *Poller {
	if logger == nil {
		logger = logging.Default()
	}
	return &Poller{
		client:       client,
		renderer:     renderer,
		logger:       logger,
		fetchEvery:   5 * time.Minute,
		relabelEvery: 60 * time.Second,
		now:          time.Now,
	}
}

func (p *Poller) WithFetchInterval(d time.Duration) *Poller {
	if d > 0 {
		p.fetchEvery = d
	}
	return p
}

func (p *Poller) WithRelabelInterval(d time.Duration) *Poller {
	if d > 0 {
		p.relabelEvery = d
	}
	return p
}

// WithListFilter restricts the request listing shown on the dashboard.
func (p *Poller) WithListFilter(f requests.ListFilter) *Poller {
	p.listFilter = f
	return p
}

// WithClock overrides the time source for tests.
func (p *Poller) WithClock(now func() time.Time) *Poller {
	p.now = now
	return p
}

// Run polls until ctx is cancelled. A full fetch happens immediately on
// start.
func (p *Poller) Run(ctx context.Context) {
	fetch := time.NewTicker(p.fetchEvery)
	defer fetch.Stop()
	relabel := time.NewTicker(p.relabelEvery)
	defer relabel.Stop()

	p.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-fetch.C:
			p.fetch(ctx)
		case <-relabel.C:
			p.render()
		}
	}
}

func (p *Poller) fetch(ctx context.Context) {
	snap, err := p.client.GetStats(ctx)
	if err != nil {
		p.logger.Warn("dashboard stats fetch failed", "error", err)
	} else {
		p.lastSnapshot = snap
	}

	reqs, err := p.client.ListRequests(ctx, p.listFilter)
	if err != nil {
		p.logger.Warn("dashboard listing fetch failed", "error", err)
	} else {
		p.lastRequests = reqs
	}

	p.render()
}

func (p *Poller) render() {
	if p.renderer == nil || p.lastSnapshot == nil {
		return
	}
	labels := make([]RequestLabel, 0, len(p.lastRequests))
	for _, req := range p.lastRequests {
		labels = append(labels, RequestLabel{
			Request: req,
			Age:     humanize.RelTime(req.CreatedAt, p.now(), "ago", "from now"),
		})
	}
	p.renderer.RenderStats(p.lastSnapshot, labels)
}
