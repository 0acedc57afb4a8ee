package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gamelearn/analytics/internal/db"
	"github.com/gamelearn/analytics/internal/logger"
	"github.com/gamelearn/analytics/internal/models"
)

// Config holds export worker configuration.
type Config struct {
	PollInterval       time.Duration // how often to look for pending jobs
	MaxJobs            int           // jobs claimed per cycle
	StaleAfter         time.Duration // reclaim processing jobs older than this
	SessionIdleTimeout time.Duration // close sessions idle longer than this
}

// DefaultConfig returns the worker defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:       2 * time.Second,
		MaxJobs:            5,
		StaleAfter:         10 * time.Minute,
		SessionIdleTimeout: 30 * time.Minute,
	}
}

// Manager drives export jobs through pending -> processing -> completed|failed
// and performs session housekeeping between cycles.
type Manager struct {
	db     *db.DB
	store  *ArtifactStore
	config Config
}

// NewManager creates an export job manager.
func NewManager(database *db.DB, store *ArtifactStore, config Config) *Manager {
	return &Manager{db: database, store: store, config: config}
}

// Run executes the worker loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on startup
	m.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

// runOnce claims and processes a batch of jobs, then closes idle sessions.
func (m *Manager) runOnce(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "export.run_once")
	defer span.End()

	jobs, err := m.db.ClaimPendingJobs(ctx, m.config.MaxJobs, m.config.StaleAfter)
	if err != nil {
		logger.Error("failed to claim export jobs", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("jobs.claimed", len(jobs)))

	for i, job := range jobs {
		select {
		case <-ctx.Done():
			logger.Info("stopping job processing due to shutdown")
			return
		default:
		}

		if err := m.processJob(ctx, &job); err != nil {
			logger.Error("export job failed",
				"job_id", job.ID,
				"type", job.Type,
				"format", job.Format,
				"error", err,
			)
			if failErr := m.db.FailExportJob(ctx, job.ID, err.Error()); failErr != nil {
				logger.Error("failed to mark job failed", "job_id", job.ID, "error", failErr)
			}
		} else {
			logger.Info("export job completed",
				"job_id", job.ID,
				"type", job.Type,
				"format", job.Format,
			)
		}

		// Brief delay between jobs for steady pacing (skip after last)
		if i < len(jobs)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
		}
	}

	if closed, err := m.db.CloseIdleSessions(ctx, m.config.SessionIdleTimeout); err != nil {
		logger.Error("failed to close idle sessions", "error", err)
	} else if closed > 0 {
		logger.Info("closed idle sessions", "count", closed)
	}
}

// processJob renders and uploads one claimed job's report.
func (m *Manager) processJob(ctx context.Context, job *db.ExportJobRecord) error {
	ctx, span := tracer.Start(ctx, "export.process_job")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.type", job.Type),
		attribute.String("job.format", job.Format),
	)

	report, err := m.buildReport(ctx, job)
	if err != nil {
		span.RecordError(err)
		return err
	}
	m.progress(ctx, job.ID, 25)

	data, err := report.Render(job.Format)
	if err != nil {
		span.RecordError(err)
		return err
	}
	m.progress(ctx, job.ID, 60)

	key := fmt.Sprintf("exports/%s/%s.%s", job.InstructorID, job.ID, job.Format)
	if err := m.store.Put(ctx, key, data, ContentType(job.Format)); err != nil {
		span.RecordError(err)
		return err
	}
	m.progress(ctx, job.ID, 90)

	filename := fmt.Sprintf("%s-report.%s", job.Type, job.Format)
	downloadURL, err := m.store.PresignDownload(ctx, key, filename)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := m.db.CompleteExportJob(ctx, job.ID, key, downloadURL); err != nil {
		// Job was deleted or already transitioned; the artifact stays until
		// the retention sweep.
		return err
	}
	return nil
}

func (m *Manager) progress(ctx context.Context, jobID string, pct int) {
	if err := m.db.UpdateJobProgress(ctx, jobID, pct); err != nil {
		logger.Warn("failed to update job progress", "job_id", jobID, "error", err)
	}
}

// buildReport queries the rows for a job's report type under its filters.
func (m *Manager) buildReport(ctx context.Context, job *db.ExportJobRecord) (*Report, error) {
	filter := db.ParseReportFilter(job.InstructorID, job.Filters)
	if job.ResourceID != nil && *job.ResourceID != "" {
		// A resource-scoped export narrows to a single course regardless of
		// the filter's course list.
		filter.CourseIDs = []string{*job.ResourceID}
	}

	switch job.Type {
	case models.ExportTypeRevenue:
		rows, err := m.db.RevenueReport(ctx, filter)
		if err != nil {
			return nil, err
		}
		report := &Report{
			Title:   "Revenue by course",
			Headers: []string{"course_id", "title", "sales", "revenue", "currency", "last_sale_at"},
		}
		for _, r := range rows {
			lastSale := ""
			if r.LastSaleAt != nil {
				lastSale = r.LastSaleAt.UTC().Format(time.RFC3339)
			}
			report.Rows = append(report.Rows, []string{
				r.CourseID, r.Title,
				strconv.FormatInt(r.Sales, 10),
				r.Revenue.StringFixed(2),
				r.Currency, lastSale,
			})
		}
		return report, nil

	case models.ExportTypeVideo:
		rows, err := m.db.VideoReport(ctx, filter)
		if err != nil {
			return nil, err
		}
		report := &Report{
			Title:   "Video engagement by course",
			Headers: []string{"course_id", "title", "viewers", "lessons_tracked", "watched_seconds", "completion_rate"},
		}
		for _, r := range rows {
			report.Rows = append(report.Rows, []string{
				r.CourseID, r.Title,
				strconv.FormatInt(r.Viewers, 10),
				strconv.FormatInt(r.LessonsTracked, 10),
				strconv.FormatInt(r.WatchedSeconds, 10),
				strconv.FormatFloat(r.CompletionRate, 'f', 4, 64),
			})
		}
		return report, nil

	case models.ExportTypePerformance:
		rows, err := m.db.PerformanceReport(ctx, filter)
		if err != nil {
			return nil, err
		}
		report := &Report{
			Title:   "Course performance",
			Headers: []string{"course_id", "title", "enrollments", "completions", "completion_rate"},
		}
		for _, r := range rows {
			report.Rows = append(report.Rows, []string{
				r.CourseID, r.Title,
				strconv.FormatInt(r.Enrollments, 10),
				strconv.FormatInt(r.Completions, 10),
				strconv.FormatFloat(r.CompletionRate, 'f', 4, 64),
			})
		}
		return report, nil
	}

	return nil, fmt.Errorf("unknown report type: %s", job.Type)
}
