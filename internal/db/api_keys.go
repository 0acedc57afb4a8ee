package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// APIKey identifies an instructor to the API. Only the SHA-256 hash of the
// key material is stored.
type APIKey struct {
	ID           int64
	InstructorID string
	Name         string
	CreatedAt    time.Time
	LastUsedAt   *time.Time
}

// ValidateAPIKey resolves a key hash to its instructor.
func (db *DB) ValidateAPIKey(ctx context.Context, keyHash string) (instructorID string, keyID int64, err error) {
	query := `SELECT id, instructor_id FROM api_keys WHERE key_hash = $1`
	err = db.conn.QueryRowContext(ctx, query, keyHash).Scan(&keyID, &instructorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", 0, ErrInvalidAPIKey
		}
		return "", 0, fmt.Errorf("failed to validate API key: %w", err)
	}
	return instructorID, keyID, nil
}

// UpdateAPIKeyLastUsed updates the last_used_at timestamp for an API key
func (db *DB) UpdateAPIKeyLastUsed(ctx context.Context, keyID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, keyID)
	if err != nil {
		return fmt.Errorf("failed to update API key last used: %w", err)
	}
	return nil
}

// CreateAPIKey stores a key hash for an instructor.
func (db *DB) CreateAPIKey(ctx context.Context, instructorID, keyHash, name string) (int64, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO api_keys (instructor_id, key_hash, name) VALUES ($1, $2, $3) RETURNING id`,
		instructorID, keyHash, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create API key: %w", err)
	}
	return id, nil
}
