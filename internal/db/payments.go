package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamelearn/analytics/internal/models"
)

// Payment is a payment row as recorded by the provider webhook sink.
// This store only reads status; the webhook processor (out of scope here)
// is the sole writer of status transitions.
type Payment struct {
	ID            string
	CourseID      string
	Amount        decimal.Decimal
	Currency      string
	Status        string
	CustomerEmail string
	PaymentMethod string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GetPayment retrieves a payment by ID.
func (db *DB) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	query := `
		SELECT id, course_id, amount, currency, status, customer_email, payment_method, created_at, updated_at
		FROM payments WHERE id = $1
	`
	var p Payment
	var amount string
	err := db.conn.QueryRowContext(ctx, query, paymentID).Scan(
		&p.ID,
		&p.CourseID,
		&amount,
		&p.Currency,
		&p.Status,
		&p.CustomerEmail,
		&p.PaymentMethod,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payment amount: %w", err)
	}

	return &p, nil
}

// ToData converts the row to the wire payload.
func (p *Payment) ToData() models.PaymentData {
	return models.PaymentData{
		Status:        p.Status,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Customer:      p.CustomerEmail,
		PaymentMethod: p.PaymentMethod,
		CreatedAt:     p.CreatedAt,
	}
}

// RecordPayment inserts or updates a payment row. Used by tests and the
// webhook ingestion script.
func (db *DB) RecordPayment(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, course_id, amount, currency, status, customer_email, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payment_method = EXCLUDED.payment_method,
			updated_at = NOW()
	`
	_, err := db.conn.ExecContext(ctx, query,
		p.ID, p.CourseID, p.Amount.String(), p.Currency, p.Status, p.CustomerEmail, p.PaymentMethod)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}
