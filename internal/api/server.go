package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gamelearn/analytics/internal/db"
	"github.com/gamelearn/analytics/internal/embed"
	"github.com/gamelearn/analytics/internal/export"
	"github.com/gamelearn/analytics/internal/logger"
)

// Server holds dependencies for API handlers
type Server struct {
	db        *db.DB
	artifacts *export.ArtifactStore
	posthog   *embed.PostHogSigner
	metabase  *embed.MetabaseSigner
	version   string
}

// NewServer creates a new API server
func NewServer(database *db.DB, artifacts *export.ArtifactStore, posthog *embed.PostHogSigner, metabase *embed.MetabaseSigner, version string) *Server {
	return &Server{
		db:        database,
		artifacts: artifacts,
		posthog:   posthog,
		metabase:  metabase,
		version:   version,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(decompressMiddleware())
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Content-Encoding"},
			AllowCredentials: true,
		}))
	}

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	mints := newMintLimiter(5, 10)

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(s.db))

		r.Route("/analytics", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mints.middleware)
				r.Post("/posthog/embed", s.handleMintPostHogEmbed)
				r.Post("/metabase/embed", s.handleMintMetabaseEmbed)
			})

			r.Post("/export", s.handleStartExport)
			r.Get("/export", s.handleExportStatus)
			r.Get("/export/jobs", s.handleListExportJobs)
			r.Delete("/export/jobs/{id}", s.handleDeleteExportJob)
		})

		r.Get("/payments/status/{paymentId}", s.handlePaymentStatus)

		r.Post("/sessions", s.handleOpenSession)
		r.Post("/sessions/{id}/activity", s.handleSessionActivity)
		r.Post("/sessions/{id}/close", s.handleCloseSession)
	})

	return r
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleRoot returns API info
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "gamelearn-analytics",
		"version": s.version,
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON parses a request body into v, rejecting unknown shapes leniently
// (extra fields are ignored; the payloads are versioned by path).
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// isNotConfigured reports whether an error is the provider-unconfigured case.
func isNotConfigured(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not configured")
}
