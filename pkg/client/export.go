package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gamelearn/analytics/internal/models"
)

// ExportOptions parameterizes an export submission.
type ExportOptions struct {
	Type       string // revenue | video | performance
	Format     string // csv | json | pdf | xlsx
	ResourceID string // optional single-course scope
	Filters    map[string]any
}

// StartExport submits an export job and returns its ID for polling.
func (c *Client) StartExport(ctx context.Context, opts ExportOptions) (string, error) {
	req := models.ExportRequest{
		Type:       opts.Type,
		Format:     opts.Format,
		ResourceID: opts.ResourceID,
		Filters:    opts.Filters,
		Async:      true,
	}
	var resp models.ExportSubmitResponse
	if err := c.doJSON(ctx, "POST", "/api/analytics/export", &req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("export submission returned no job ID")
	}
	return resp.JobID, nil
}

// GetExportJob fetches one job's current state.
func (c *Client) GetExportJob(ctx context.Context, jobID string) (*models.ExportJob, error) {
	path := "/api/analytics/export?jobId=" + url.QueryEscape(jobID)
	var resp models.ExportStatusResponse
	if err := c.doJSON(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Job == nil {
		return nil, fmt.Errorf("export status response missing job")
	}
	return resp.Job, nil
}

// WaitForExport polls a job until it reaches a terminal state. On
// completed, the download URL is opened exactly once through the
// configured opener and the job is returned. On failed, the job is
// returned along with its recorded error. The loop is bounded: exhausting
// the attempt budget returns ErrPollTimeout with the last observed job.
func (c *Client) WaitForExport(ctx context.Context, jobID string) (*models.ExportJob, error) {
	var last *models.ExportJob

	for attempt := 0; attempt < c.opts.ExportMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.opts.ExportPollInterval); err != nil {
				return last, err
			}
		}

		job, err := c.GetExportJob(ctx, jobID)
		if err != nil {
			return last, err
		}
		last = job

		switch job.Status {
		case models.JobStatusCompleted:
			if job.DownloadURL != "" {
				if err := c.openURL(job.DownloadURL); err != nil {
					return job, fmt.Errorf("export completed but download failed to open: %w", err)
				}
			}
			return job, nil
		case models.JobStatusFailed:
			if job.Error != "" {
				return job, fmt.Errorf("export failed: %s", job.Error)
			}
			return job, fmt.Errorf("export failed")
		}
	}

	return last, fmt.Errorf("export job %s: %w", jobID, ErrPollTimeout)
}

// ListExportJobs returns the caller's persisted jobs, newest first.
func (c *Client) ListExportJobs(ctx context.Context) ([]models.ExportJob, error) {
	var resp models.ExportJobListResponse
	if err := c.doJSON(ctx, "GET", "/api/analytics/export/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// DeleteExportJob removes a persisted job record and its artifact.
func (c *Client) DeleteExportJob(ctx context.Context, jobID string) error {
	return c.doJSON(ctx, "DELETE", "/api/analytics/export/jobs/"+url.PathEscape(jobID), nil, nil)
}
