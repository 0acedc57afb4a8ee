package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gamelearn/analytics/internal/models"
)

// ExportJobRecord is the persisted form of an export job. The wire view
// (models.ExportJob) is derived from it; object_key never leaves the server.
type ExportJobRecord struct {
	ID           string
	InstructorID string
	Type         string
	Format       string
	ResourceID   *string
	Filters      map[string]any
	Status       string
	Progress     int
	ObjectKey    *string
	DownloadURL  *string
	Error        *string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// ToModel converts the record to its client-visible shape.
func (r *ExportJobRecord) ToModel() models.ExportJob {
	job := models.ExportJob{
		ID:          r.ID,
		Type:        r.Type,
		Format:      r.Format,
		Status:      r.Status,
		Progress:    r.Progress,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.DownloadURL != nil {
		job.DownloadURL = *r.DownloadURL
	}
	if r.Error != nil {
		job.Error = *r.Error
	}
	return job
}

// CreateExportJob inserts a new pending job and returns its ID.
func (db *DB) CreateExportJob(ctx context.Context, instructorID string, req *models.ExportRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "db.create_export_job",
		trace.WithAttributes(
			attribute.String("job.type", req.Type),
			attribute.String("job.format", req.Format),
		))
	defer span.End()

	filtersJSON, err := json.Marshal(req.Filters)
	if err != nil {
		return "", fmt.Errorf("failed to marshal filters: %w", err)
	}
	if req.Filters == nil {
		filtersJSON = []byte("{}")
	}

	var resourceID *string
	if req.ResourceID != "" {
		resourceID = &req.ResourceID
	}

	jobID := uuid.New().String()
	query := `
		INSERT INTO export_jobs (id, instructor_id, type, format, resource_id, filters, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	`
	if _, err := db.conn.ExecContext(ctx, query, jobID, instructorID, req.Type, req.Format, resourceID, filtersJSON); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to create export job: %w", err)
	}

	span.SetAttributes(attribute.String("job.id", jobID))
	return jobID, nil
}

const exportJobColumns = `id, instructor_id, type, format, resource_id, filters, status, progress,
	object_key, download_url, error, created_at, started_at, completed_at`

func scanExportJob(row interface{ Scan(...any) error }) (*ExportJobRecord, error) {
	var job ExportJobRecord
	var filtersJSON []byte
	err := row.Scan(
		&job.ID,
		&job.InstructorID,
		&job.Type,
		&job.Format,
		&job.ResourceID,
		&filtersJSON,
		&job.Status,
		&job.Progress,
		&job.ObjectKey,
		&job.DownloadURL,
		&job.Error,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(filtersJSON) > 0 {
		if err := json.Unmarshal(filtersJSON, &job.Filters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job filters: %w", err)
		}
	}
	return &job, nil
}

// GetExportJob retrieves a job scoped to its owning instructor.
func (db *DB) GetExportJob(ctx context.Context, instructorID, jobID string) (*ExportJobRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_jobs WHERE id = $1 AND instructor_id = $2`, exportJobColumns)
	job, err := scanExportJob(db.conn.QueryRowContext(ctx, query, jobID, instructorID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get export job: %w", err)
	}
	return job, nil
}

// ListExportJobs returns an instructor's jobs, newest first.
func (db *DB) ListExportJobs(ctx context.Context, instructorID string, limit int) ([]ExportJobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM export_jobs WHERE instructor_id = $1 ORDER BY created_at DESC LIMIT $2`, exportJobColumns)

	rows, err := db.conn.QueryContext(ctx, query, instructorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ExportJobRecord
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export jobs: %w", err)
	}

	return jobs, nil
}

// DeleteExportJob removes a persisted job record. Running jobs can be
// deleted too; the worker tolerates the row disappearing mid-flight.
func (db *DB) DeleteExportJob(ctx context.Context, instructorID, jobID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM export_jobs WHERE id = $1 AND instructor_id = $2`, jobID, instructorID)
	if err != nil {
		return fmt.Errorf("failed to delete export job: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ClaimPendingJobs atomically moves up to limit pending jobs to processing
// and returns them. SKIP LOCKED keeps concurrent workers from claiming the
// same job. Jobs stuck in processing longer than staleAfter are reclaimed
// (worker crashed mid-job).
func (db *DB) ClaimPendingJobs(ctx context.Context, limit int, staleAfter time.Duration) ([]ExportJobRecord, error) {
	ctx, span := tracer.Start(ctx, "db.claim_pending_jobs",
		trace.WithAttributes(attribute.Int("jobs.limit", limit)))
	defer span.End()

	query := fmt.Sprintf(`
		UPDATE export_jobs SET status = 'processing', started_at = NOW(), progress = 0
		WHERE id IN (
			SELECT id FROM export_jobs
			WHERE status = 'pending'
			   OR (status = 'processing' AND started_at < NOW() - $2::interval)
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, exportJobColumns)

	interval := fmt.Sprintf("%d seconds", int(staleAfter.Seconds()))
	rows, err := db.conn.QueryContext(ctx, query, limit, interval)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to claim pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ExportJobRecord
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed jobs: %w", err)
	}

	span.SetAttributes(attribute.Int("jobs.claimed", len(jobs)))
	return jobs, nil
}

// UpdateJobProgress bumps the progress of a processing job. Progress on a
// terminal job is silently ignored (the row may have been completed by a
// concurrent transition or deleted by the user).
func (db *DB) UpdateJobProgress(ctx context.Context, jobID string, progress int) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE export_jobs SET progress = $2 WHERE id = $1 AND status = 'processing'`,
		jobID, progress)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// CompleteExportJob transitions processing -> completed with the artifact
// location. Returns ErrBadTransition if the job is not processing.
func (db *DB) CompleteExportJob(ctx context.Context, jobID, objectKey, downloadURL string) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = 'completed', progress = 100, object_key = $2, download_url = $3, completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, jobID, objectKey, downloadURL)
	if err != nil {
		return fmt.Errorf("failed to complete export job: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBadTransition
	}
	return nil
}

// FailExportJob transitions processing -> failed with an error message.
func (db *DB) FailExportJob(ctx context.Context, jobID, message string) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = 'failed', error = $2, completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, jobID, message)
	if err != nil {
		return fmt.Errorf("failed to fail export job: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBadTransition
	}
	return nil
}
