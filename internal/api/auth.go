package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/gamelearn/analytics/internal/db"
	"github.com/gamelearn/analytics/internal/logger"
)

type contextKey string

const instructorIDContextKey contextKey = "instructorID"

// InstructorIDContextKey exposes the context key for test helpers.
func InstructorIDContextKey() contextKey {
	return instructorIDContextKey
}

// HashAPIKey returns the hex SHA-256 of an API key. Only hashes are stored
// and compared.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// AuthMiddleware authenticates requests via "Authorization: Bearer <key>"
// and stores the resolved instructor ID in the request context.
func AuthMiddleware(database *db.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondError(w, http.StatusUnauthorized, "Missing API key")
				return
			}
			key := strings.TrimPrefix(header, "Bearer ")

			instructorID, keyID, err := database.ValidateAPIKey(r.Context(), HashAPIKey(key))
			if err != nil {
				if errors.Is(err, db.ErrInvalidAPIKey) {
					respondError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				logger.Ctx(r.Context()).Error("API key validation failed", "error", err)
				respondError(w, http.StatusInternalServerError, "Authentication failed")
				return
			}

			// Best effort; a failed timestamp update should not block the request
			if err := database.UpdateAPIKeyLastUsed(r.Context(), keyID); err != nil {
				logger.Ctx(r.Context()).Warn("failed to update key last used", "error", err)
			}

			log := logger.Ctx(r.Context()).With("instructor_id", instructorID)
			ctx := logger.WithLogger(r.Context(), log)
			ctx = context.WithValue(ctx, instructorIDContextKey, instructorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetInstructorID retrieves the authenticated instructor from context.
func GetInstructorID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(instructorIDContextKey).(string)
	return id, ok
}
