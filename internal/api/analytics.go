package api

import (
	"net/http"
	"time"

	"github.com/gamelearn/analytics/internal/embed"
	"github.com/gamelearn/analytics/internal/logger"
	"github.com/gamelearn/analytics/internal/models"
)

// handleMintPostHogEmbed mints a signed PostHog insight/dashboard URL.
func (s *Server) handleMintPostHogEmbed(w http.ResponseWriter, r *http.Request) {
	s.mintEmbed(w, r, s.posthog)
}

// handleMintMetabaseEmbed mints a Metabase signed-embedding URL.
func (s *Server) handleMintMetabaseEmbed(w http.ResponseWriter, r *http.Request) {
	s.mintEmbed(w, r, s.metabase)
}

func (s *Server) mintEmbed(w http.ResponseWriter, r *http.Request, signer embed.Signer) {
	var req models.EmbedRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := signer.Sign(&req, time.Now().UTC())
	if err != nil {
		if isNotConfigured(err) {
			// The dashboard shows an explanatory placeholder instead of a
			// broken iframe when a provider is not set up.
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		logger.Ctx(r.Context()).Warn("embed mint rejected",
			"provider", string(signer.Provider()), "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Ctx(r.Context()).Info("minted embed",
		"provider", string(signer.Provider()), "expires_at", resp.ExpiresAt)
	respondJSON(w, http.StatusOK, resp)
}
