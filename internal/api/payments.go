package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gamelearn/analytics/internal/db"
	"github.com/gamelearn/analytics/internal/logger"
	"github.com/gamelearn/analytics/internal/models"
)

// handlePaymentStatus reports a payment's current state. The client polls
// this after checkout redirect; status is written only by the webhook sink.
func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")
	if paymentID == "" {
		respondError(w, http.StatusBadRequest, "Missing payment ID")
		return
	}

	payment, err := s.db.GetPayment(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, db.ErrPaymentNotFound) {
			// The webhook may simply not have landed yet; the client treats
			// 404 as "keep polling".
			respondError(w, http.StatusNotFound, "Payment not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to get payment", "payment_id", paymentID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get payment status")
		return
	}

	data := payment.ToData()
	respondJSON(w, http.StatusOK, models.PaymentStatusResponse{Success: true, Data: &data})
}
