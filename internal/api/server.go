// Package api provides the HTTP server for xpd.
// It serves the gamification state to the UI and a live websocket feed.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/studyplatform/xpd/internal/app/provider"
	"github.com/studyplatform/xpd/internal/health"
)

// Server is the xpd HTTP API server.
type Server struct {
	provider       *provider.Provider
	auth           *Authenticator
	hub            *Hub
	health         *health.Checker // nil until SetHealth
	corsOrigins    []string
	metricsEnabled bool
	logRequests    bool
	version        string
}

// NewServer creates a server and subscribes its live hub to the provider.
func NewServer(p *provider.Provider, auth *Authenticator) *Server {
	hub := NewHub()
	p.SetNotifier(hub)
	return &Server{
		provider:    p,
		auth:        auth,
		hub:         hub,
		corsOrigins: []string{"*"},
		version:     "dev",
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetRequestLogging turns per-request access logs on or off.
func (s *Server) SetRequestLogging(on bool) { s.logRequests = on }

// SetHealth attaches the health checker reported by /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// SetCORSOrigins restricts browser origins. "*" allows any.
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// SetVersion sets the version reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Hub returns the live feed hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.logRequests {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"version": s.version})
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/gamification", func(r chi.Router) {
		// Static tables need no session.
		r.Get("/levels", s.handleLevels)
		r.Get("/rewards", s.handleRewards)
		r.Get("/badges", s.handleBadges)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)

			// The live feed is long-lived and must not inherit the request timeout.
			r.Get("/live", s.handleLive)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				r.Get("/", s.handleState)
				r.Post("/refresh", s.handleRefresh)
				r.Post("/xp", s.handleAwardXP)
				r.Post("/actions/{action}", s.handleAwardAction)
				r.Delete("/session", s.handleForget)
			})
		})
	})

	return s.cors().Handler(r)
}

func (s *Server) cors() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	})
}

// originAllowed applies the CORS origin list to websocket upgrades.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.corsOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// envelope matches the platform backend's response wrapper.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respond writes a successful enveloped response.
func respond(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Message: "ok", Data: data})
}

// writeError writes a failed enveloped response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}
