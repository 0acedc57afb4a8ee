package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LearningSession is a tracked window of continuous user activity.
type LearningSession struct {
	ID              string
	SubjectID       string
	StartedAt       time.Time
	LastActivityAt  time.Time
	EndedAt         *time.Time
	DurationSeconds *int64
	EndReason       *string
}

// OpenSession creates a new learning session for a subject.
func (db *DB) OpenSession(ctx context.Context, subjectID string) (*LearningSession, error) {
	sessionID := uuid.New().String()
	query := `
		INSERT INTO learning_sessions (id, subject_id)
		VALUES ($1, $2)
		RETURNING started_at, last_activity_at
	`
	session := LearningSession{ID: sessionID, SubjectID: subjectID}
	err := db.conn.QueryRowContext(ctx, query, sessionID, subjectID).Scan(
		&session.StartedAt, &session.LastActivityAt)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return &session, nil
}

// TouchSession updates last_activity_at on an open session.
func (db *DB) TouchSession(ctx context.Context, sessionID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE learning_sessions SET last_activity_at = NOW() WHERE id = $1 AND ended_at IS NULL`,
		sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Either unknown or already closed; distinguish for the caller.
		var exists bool
		if err := db.conn.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM learning_sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if !exists {
			return ErrSessionNotFound
		}
		return ErrSessionClosed
	}
	return nil
}

// CloseSession ends a session exactly once. A second close of the same
// session is a no-op returning ErrSessionClosed; the first recorded
// duration wins.
func (db *DB) CloseSession(ctx context.Context, sessionID string, durationSeconds int64, reason string) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE learning_sessions
		SET ended_at = NOW(), duration_seconds = $2, end_reason = $3
		WHERE id = $1 AND ended_at IS NULL
	`, sessionID, durationSeconds, reason)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := db.conn.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM learning_sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if !exists {
			return ErrSessionNotFound
		}
		return ErrSessionClosed
	}
	return nil
}

// GetSession retrieves a session by ID.
func (db *DB) GetSession(ctx context.Context, sessionID string) (*LearningSession, error) {
	query := `
		SELECT id, subject_id, started_at, last_activity_at, ended_at, duration_seconds, end_reason
		FROM learning_sessions WHERE id = $1
	`
	var s LearningSession
	err := db.conn.QueryRowContext(ctx, query, sessionID).Scan(
		&s.ID, &s.SubjectID, &s.StartedAt, &s.LastActivityAt, &s.EndedAt, &s.DurationSeconds, &s.EndReason)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// CloseIdleSessions ends sessions with no activity within the timeout.
// Run periodically by the worker; the duration is measured to the last
// observed activity, not to now.
func (db *DB) CloseIdleSessions(ctx context.Context, idleTimeout time.Duration) (int64, error) {
	interval := fmt.Sprintf("%d seconds", int(idleTimeout.Seconds()))
	result, err := db.conn.ExecContext(ctx, `
		UPDATE learning_sessions
		SET ended_at = last_activity_at,
		    duration_seconds = EXTRACT(EPOCH FROM (last_activity_at - started_at))::bigint,
		    end_reason = 'inactivity'
		WHERE ended_at IS NULL AND last_activity_at < NOW() - $1::interval
	`, interval)
	if err != nil {
		return 0, fmt.Errorf("failed to close idle sessions: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
