// Package router assembles the HTTP surface: the public submission endpoint
// and the JWT-protected admin API.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/bluerock/sales-hub/internal/http/middleware"
	"github.com/bluerock/sales-hub/internal/requests"
	"github.com/bluerock/sales-hub/internal/stats"
	"github.com/bluerock/sales-hub/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	RequestsHandler *requests.Handler
	StatsHandler    *stats.Handler
	AdminAuthSecret string
	MetricsHandler  http.Handler

	CORSAllowedOrigins []string

	// Public submission rate limit (requests/sec plus burst per IP).
	SubmitRateLimit float64
	SubmitRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.RequestsHandler != nil {
			rate := cfg.SubmitRateLimit
			if rate <= 0 {
				rate = 10
			}
			burst := cfg.SubmitRateBurst
			if burst <= 0 {
				burst = 5
			}
			public.With(httpmiddleware.RateLimit(rate, burst)).Post("/requests", cfg.RequestsHandler.Submit)
		}
	})

	// Admin routes (protected by HMAC JWT)
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.RequestsHandler != nil {
			admin.Get("/requests", cfg.RequestsHandler.List)
			admin.Route("/requests/{requestID}", func(req chi.Router) {
				req.Post("/status", cfg.RequestsHandler.ChangeStatus)
				req.Post("/assign", cfg.RequestsHandler.Assign)
				req.Post("/notes", cfg.RequestsHandler.Annotate)
			})
		}
		if cfg.StatsHandler != nil {
			admin.Get("/stats", cfg.StatsHandler.GetStats)
			admin.Get("/activity", cfg.StatsHandler.GetActivity)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
