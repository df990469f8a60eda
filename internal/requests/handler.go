package requests

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bluerock/sales-hub/pkg/logging"
)

// Handler exposes the lifecycle and listing operations over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a requests handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// SubmitResponse is the creation acknowledgement returned to the public form.
type SubmitResponse struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
	Tier  Tier   `json:"tier"`
}

// Submit handles POST /requests, the public creation entry point.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.logger.Error("failed to decode submission", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub.IPAddress = clientIP(r)
	sub.UserAgent = r.UserAgent()

	req, err := h.svc.Create(r.Context(), sub)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		ID:    req.ID,
		Score: req.LeadScore,
		Tier:  req.Tier,
	})
}

type changeStatusRequest struct {
	Status Status `json:"status"`
}

// ChangeStatus handles POST /admin/requests/{requestID}/status.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	var body changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.svc.Transition(r.Context(), id, body.Status)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type assignRequest struct {
	AgentID string `json:"agent_id"`
}

// Assign handles POST /admin/requests/{requestID}/assign.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	var body assignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.svc.Assign(r.Context(), id, body.AgentID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type annotateRequest struct {
	Notes string `json:"notes"`
}

// Annotate handles POST /admin/requests/{requestID}/notes.
func (h *Handler) Annotate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	var body annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.svc.Annotate(r.Context(), id, body.Notes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListResponse wraps a listing.
type ListResponse struct {
	Requests []*ServiceRequest `json:"requests"`
	Count    int               `json:"count"`
}

// List handles GET /admin/requests with optional status, category, priority
// and limit query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := ParseListFilter(q.Get("status"), q.Get("category"), q.Get("priority"), q.Get("limit"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Requests: out, Count: len(out)})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	var invalid *InvalidTransitionError
	var transient *TransientStoreError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   invalid.Error(),
			"current": invalid.From,
			"target":  invalid.To,
		})
	case errors.As(err, &transient):
		h.logger.Error("store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		h.logger.Error("request operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr and
// strips the port when one is still present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
