package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPendingPaymentRoundTrip(t *testing.T) {
	t.Setenv("GAMELEARN_DATA_DIR", t.TempDir())

	record := &PendingPayment{
		PaymentID:   "pay-1",
		CourseID:    "course-1",
		CourseTitle: "Go Basics",
		Customer:    "student@example.com",
	}
	if err := SavePendingPayment(record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadPendingPayment()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil for a saved record")
	}
	if loaded.PaymentID != "pay-1" || loaded.CourseID != "course-1" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Timestamp.IsZero() || time.Since(loaded.Timestamp) > time.Minute {
		t.Errorf("timestamp not stamped on save: %v", loaded.Timestamp)
	}
}

func TestPendingPaymentAbsent(t *testing.T) {
	t.Setenv("GAMELEARN_DATA_DIR", t.TempDir())

	loaded, err := LoadPendingPayment()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Errorf("got %+v, want nil for absent record", loaded)
	}
}

func TestPendingPaymentMalformedTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GAMELEARN_DATA_DIR", dir)

	path := filepath.Join(dir, pendingPaymentFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadPendingPayment()
	if err != nil {
		t.Fatalf("malformed record must not error, got %v", err)
	}
	if loaded != nil {
		t.Errorf("got %+v, want nil for malformed record", loaded)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("malformed record not removed")
	}
}

func TestClearPendingPayment(t *testing.T) {
	t.Setenv("GAMELEARN_DATA_DIR", t.TempDir())

	if err := ClearPendingPayment(); err != nil {
		t.Fatalf("clearing absent record: %v", err)
	}

	if err := SavePendingPayment(&PendingPayment{PaymentID: "pay-2", CourseID: "c"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := ClearPendingPayment(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	loaded, err := LoadPendingPayment()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Errorf("record survived Clear: %+v", loaded)
	}
}
