package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gamelearn/analytics/internal/db"
	"github.com/gamelearn/analytics/internal/logger"
	"github.com/gamelearn/analytics/internal/models"
)

// handleOpenSession starts a tracked learning session.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req models.OpenSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SubjectID == "" {
		respondError(w, http.StatusBadRequest, "Missing subjectId")
		return
	}

	session, err := s.db.OpenSession(r.Context(), req.SubjectID)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to open session", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to open session")
		return
	}

	logger.Ctx(r.Context()).Info("session opened",
		"session_id", session.ID, "subject_id", req.SubjectID)
	respondJSON(w, http.StatusCreated, models.OpenSessionResponse{
		SessionID: session.ID,
		StartedAt: session.StartedAt,
	})
}

// handleSessionActivity records a liveness ping on an open session. Pings
// against an already-closed session succeed as no-ops so a straggling ping
// after an inactivity close never surfaces as a client error.
func (s *Server) handleSessionActivity(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	err := s.db.TouchSession(r.Context(), sessionID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, db.ErrSessionClosed):
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "closed": true})
	case errors.Is(err, db.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	default:
		logger.Ctx(r.Context()).Error("failed to touch session", "session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to record activity")
	}
}

// handleCloseSession ends a session. Closing twice is not an error: the
// first close wins and the repeat reports success without rewriting the
// recorded duration.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req models.CloseSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DurationSeconds < 0 {
		respondError(w, http.StatusBadRequest, "Invalid durationSeconds")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "unmount"
	}

	err := s.db.CloseSession(r.Context(), sessionID, req.DurationSeconds, reason)
	switch {
	case err == nil:
		logger.Ctx(r.Context()).Info("session closed",
			"session_id", sessionID, "duration_seconds", req.DurationSeconds, "reason", reason)
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, db.ErrSessionClosed):
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "alreadyClosed": true})
	case errors.Is(err, db.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	default:
		logger.Ctx(r.Context()).Error("failed to close session", "session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to close session")
	}
}
