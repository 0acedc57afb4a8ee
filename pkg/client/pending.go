package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// pendingPaymentFile is the fixed record name under the data directory.
const pendingPaymentFile = "pending_payment.json"

// PendingPayment is the locally persisted record of a checkout in flight.
// Written when the user is sent to the payment provider, read on the
// purchase-success page, and cleared once the payment confirms succeeded.
type PendingPayment struct {
	PaymentID   string    `json:"paymentId"`
	CourseID    string    `json:"courseId"`
	CourseTitle string    `json:"courseTitle,omitempty"`
	ReturnURL   string    `json:"returnUrl,omitempty"`
	Customer    string    `json:"customer,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// dataDir returns the directory holding local records, creating it if
// needed. GAMELEARN_DATA_DIR overrides the default ~/.gamelearn.
func dataDir() (string, error) {
	if dir := os.Getenv("GAMELEARN_DATA_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".gamelearn")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// SavePendingPayment persists the record, replacing any existing one.
func SavePendingPayment(p *PendingPayment) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pending payment: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, pendingPaymentFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write pending payment: %w", err)
	}
	return nil
}

// LoadPendingPayment reads the record if one exists. A missing file or
// malformed JSON both mean "no pending payment", not an error; a corrupt
// record is dropped so it cannot wedge the success page.
func LoadPendingPayment() (*PendingPayment, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, pendingPaymentFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending payment: %w", err)
	}

	var p PendingPayment
	if err := json.Unmarshal(data, &p); err != nil || p.PaymentID == "" {
		_ = os.Remove(path)
		return nil, nil
	}
	return &p, nil
}

// ClearPendingPayment removes the record. Clearing an absent record is a
// no-op.
func ClearPendingPayment() error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, pendingPaymentFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear pending payment: %w", err)
	}
	return nil
}
