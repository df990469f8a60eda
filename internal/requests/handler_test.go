package requests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bluerock/sales-hub/internal/agents"
)

func newTestHandler(t *testing.T) (*Handler, *Service) {
	t.Helper()
	repo := NewInMemoryRepository()
	directory := agents.NewInMemoryDirectory(agents.Agent{ID: "agent-1", Name: "Dana"})
	svc := NewService(repo, directory, nil, nil)
	return NewHandler(svc, nil), svc
}

func mountTestRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/requests", h.Submit)
	r.Get("/admin/requests", h.List)
	r.Route("/admin/requests/{requestID}", func(req chi.Router) {
		req.Post("/status", h.ChangeStatus)
		req.Post("/assign", h.Assign)
		req.Post("/notes", h.Annotate)
	})
	return r
}

func TestSubmitSuccess(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)

	body, _ := json.Marshal(Submission{
		Phone:           "+254700000001",
		Category:        CategorySupport,
		SpecificService: "appointment",
		Timeline:        TimelineImmediate,
	})
	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewReader(body))
	req.RemoteAddr = "203.0.113.9:56001"
	req.Header.Set("User-Agent", "form-test")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var resp SubmitResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Score != 70 {
		t.Errorf("expected score 70, got %d", resp.Score)
	}
	if resp.Tier != TierHigh {
		t.Errorf("expected high tier, got %s", resp.Tier)
	}
	if resp.ID == "" {
		t.Errorf("expected id in response")
	}
}

func TestSubmitCapturesClientMetadata(t *testing.T) {
	h, svc := newTestHandler(t)
	router := mountTestRoutes(h)

	body, _ := json.Marshal(Submission{
		Phone:           "+254700000001",
		Category:        CategoryQuickService,
		SpecificService: "puk",
		Timeline:        TimelineThisWeek,
	})
	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewReader(body))
	req.RemoteAddr = "203.0.113.9:56001"
	req.Header.Set("User-Agent", "form-test")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	var resp SubmitResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	stored, err := svc.repo.GetByID(req.Context(), resp.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.IPAddress != "203.0.113.9" {
		t.Errorf("expected ip without port, got %q", stored.IPAddress)
	}
	if stored.UserAgent != "form-test" {
		t.Errorf("expected user agent captured, got %q", stored.UserAgent)
	}
}

func TestSubmitValidationFailure(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)

	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(`{"phone":""}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Fields) == 0 {
		t.Errorf("expected field detail in response")
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)

	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func createViaAPI(t *testing.T, router http.Handler) string {
	t.Helper()
	body, _ := json.Marshal(Submission{
		Phone:           "+254700000001",
		Category:        CategoryProducts,
		SpecificService: "esim",
		Timeline:        TimelineThisWeek,
	})
	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected %d, got %d", http.StatusCreated, w.Code)
	}
	var resp SubmitResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.ID
}

func TestChangeStatusSuccess(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)
	id := createViaAPI(t, router)

	req := httptest.NewRequest(http.MethodPost, "/admin/requests/"+id+"/status",
		strings.NewReader(`{"status":"in_progress"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var updated ServiceRequest
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Errorf("expected in_progress, got %s", updated.Status)
	}
}

func TestChangeStatusConflict(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)
	id := createViaAPI(t, router)

	cancel := httptest.NewRequest(http.MethodPost, "/admin/requests/"+id+"/status",
		strings.NewReader(`{"status":"cancelled"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, cancel)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected %d, got %d", http.StatusOK, w.Code)
	}

	complete := httptest.NewRequest(http.MethodPost, "/admin/requests/"+id+"/status",
		strings.NewReader(`{"status":"completed"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, complete)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
	var resp struct {
		Current Status `json:"current"`
		Target  Status `json:"target"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Current != StatusCancelled || resp.Target != StatusCompleted {
		t.Errorf("expected cancelled/completed detail, got %s/%s", resp.Current, resp.Target)
	}
}

func TestChangeStatusNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)

	req := httptest.NewRequest(http.MethodPost, "/admin/requests/no-such-id/status",
		strings.NewReader(`{"status":"cancelled"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestAssignEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)
	id := createViaAPI(t, router)

	req := httptest.NewRequest(http.MethodPost, "/admin/requests/"+id+"/assign",
		strings.NewReader(`{"agent_id":"agent-1"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var updated ServiceRequest
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.AssignedAgentID == nil || *updated.AssignedAgentID != "agent-1" {
		t.Errorf("expected agent-1 assigned, got %v", updated.AssignedAgentID)
	}
}

func TestAssignUnknownAgentEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)
	id := createViaAPI(t, router)

	req := httptest.NewRequest(http.MethodPost, "/admin/requests/"+id+"/assign",
		strings.NewReader(`{"agent_id":"agent-404"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestAnnotateEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)
	id := createViaAPI(t, router)

	req := httptest.NewRequest(http.MethodPost, "/admin/requests/"+id+"/notes",
		strings.NewReader(`{"notes":"left voicemail"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var updated ServiceRequest
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Notes != "left voicemail" {
		t.Errorf("expected notes updated, got %q", updated.Notes)
	}
}

func TestListEndpointFilters(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)
	createViaAPI(t, router)

	req := httptest.NewRequest(http.MethodGet, "/admin/requests?priority=high&limit=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("expected one high-tier request, got %d", resp.Count)
	}
}

func TestListEndpointRejectsUnknownFilter(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mountTestRoutes(h)

	req := httptest.NewRequest(http.MethodGet, "/admin/requests?status=archived", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
