package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gamelearn/analytics/internal/models"
)

// GetPaymentStatus fetches a payment's current state once.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*models.PaymentData, error) {
	path := "/api/payments/status/" + url.PathEscape(paymentID)
	var resp models.PaymentStatusResponse
	if err := c.doJSON(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, errors.New("payment status response missing data")
	}
	return resp.Data, nil
}

// ConfirmPayment polls a payment after checkout redirect: fixed interval,
// bounded attempts. A terminal status (succeeded, failed, cancelled) stops
// polling early. Exhausting the attempt budget is NOT an error: the
// payment may still settle asynchronously via webhook, so the caller gets
// the last observed state (or a synthetic "processing" one if the payment
// row never appeared) and moves on. A 404 mid-loop means the webhook has
// not landed yet and counts as a plain non-terminal attempt.
func (c *Client) ConfirmPayment(ctx context.Context, paymentID string) (*models.PaymentData, error) {
	var last *models.PaymentData

	for attempt := 0; attempt < c.opts.PaymentMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.opts.PaymentPollInterval); err != nil {
				return last, err
			}
		}

		data, err := c.GetPaymentStatus(ctx, paymentID)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
				continue
			}
			return last, err
		}
		last = data

		if models.TerminalPaymentStatus(data.Status) {
			return data, nil
		}
	}

	if last == nil {
		last = &models.PaymentData{Status: models.PaymentProcessing}
	}
	return last, nil
}
