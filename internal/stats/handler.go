package stats

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bluerock/sales-hub/pkg/logging"
)

// Handler exposes the dashboard stats endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// GetStats handles GET /admin/stats. An optional as_of query parameter
// (RFC 3339) anchors the snapshot at a past instant and bypasses the cache.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	var (
		snap *Snapshot
		err  error
	)

	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "as_of must be RFC 3339")
			return
		}
		snap, err = h.svc.At(r.Context(), asOf)
	} else {
		snap, err = h.svc.Current(r.Context())
	}

	if err != nil {
		h.logger.Error("stats snapshot failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "stats temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetActivity handles GET /admin/activity.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	feed, err := h.svc.RecentActivity(r.Context(), limit)
	if err != nil {
		h.logger.Error("activity feed failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "activity temporarily unavailable")
		return
	}
	if feed == nil {
		feed = []Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": feed, "count": len(feed)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
