// Package dashboard implements the polling client behind the internal sales
// dashboard: an HTTP client for the stats and listing endpoints, and a poller
// that refreshes them on independent cadences.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bluerock/sales-hub/internal/requests"
	"github.com/bluerock/sales-hub/internal/stats"
)

// Client calls the admin API. The embedded http.Client is injected so tests
// can point it at an httptest server.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates a dashboard API client. httpClient may be nil, in which
// case a client with a 10s timeout is used.
func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: httpClient, baseURL: baseURL, token: token}
}

// GetStats fetches the current dashboard snapshot.
func (c *Client) GetStats(ctx context.Context) (*stats.Snapshot, error) {
	var snap stats.Snapshot
	if err := c.get(ctx, "/admin/stats", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListRequests fetches a filtered request listing.
func (c *Client) ListRequests(ctx context.Context, filter requests.ListFilter) ([]requests.ServiceRequest, error) {
	q := url.Values{}
	if filter.Status != nil {
		q.Set("status", string(*filter.Status))
	}
	if filter.Category != nil {
		q.Set("category", string(*filter.Category))
	}
	if filter.Priority != nil {
		q.Set("priority", string(*filter.Priority))
	}
	if filter.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}

	var resp requests.ListResponse
	if err := c.get(ctx, "/admin/requests", q, &resp); err != nil {
		return nil, err
	}
	out := make([]requests.ServiceRequest, 0, len(resp.Requests))
	for _, r := range resp.Requests {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("dashboard: build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dashboard: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dashboard: %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("dashboard: decode %s: %w", path, err)
	}
	return nil
}
