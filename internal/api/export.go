package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gamelearn/analytics/internal/db"
	"github.com/gamelearn/analytics/internal/logger"
	"github.com/gamelearn/analytics/internal/models"
)

// handleStartExport validates and enqueues an export job. The worker picks
// it up; the response carries only the job ID for polling.
func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	instructorID, _ := GetInstructorID(r.Context())

	var req models.ExportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !models.ValidExportType(req.Type) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown export type: %q", req.Type))
		return
	}
	if req.Format == "" {
		req.Format = models.FormatCSV
	}
	if !models.ValidExportFormat(req.Format) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported export format: %q", req.Format))
		return
	}

	jobID, err := s.db.CreateExportJob(r.Context(), instructorID, &req)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to create export job", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create export job")
		return
	}

	logger.Ctx(r.Context()).Info("export job queued",
		"job_id", jobID, "type", req.Type, "format", req.Format)
	respondJSON(w, http.StatusAccepted, models.ExportSubmitResponse{JobID: jobID})
}

// handleExportStatus returns a single job's current state for polling.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	instructorID, _ := GetInstructorID(r.Context())

	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "Missing jobId parameter")
		return
	}

	record, err := s.db.GetExportJob(r.Context(), instructorID, jobID)
	if err != nil {
		if errors.Is(err, db.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "Export job not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to get export job", "job_id", jobID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get export job")
		return
	}

	job := record.ToModel()
	respondJSON(w, http.StatusOK, models.ExportStatusResponse{Success: true, Job: &job})
}

// handleListExportJobs returns the caller's recent jobs, newest first.
func (s *Server) handleListExportJobs(w http.ResponseWriter, r *http.Request) {
	instructorID, _ := GetInstructorID(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	records, err := s.db.ListExportJobs(r.Context(), instructorID, limit)
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to list export jobs", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list export jobs")
		return
	}

	jobs := make([]models.ExportJob, 0, len(records))
	for i := range records {
		jobs = append(jobs, records[i].ToModel())
	}
	respondJSON(w, http.StatusOK, models.ExportJobListResponse{Success: true, Jobs: jobs})
}

// handleDeleteExportJob removes a job record and its artifact, if any.
func (s *Server) handleDeleteExportJob(w http.ResponseWriter, r *http.Request) {
	instructorID, _ := GetInstructorID(r.Context())
	jobID := chi.URLParam(r, "id")

	record, err := s.db.GetExportJob(r.Context(), instructorID, jobID)
	if err != nil {
		if errors.Is(err, db.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "Export job not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to get export job", "job_id", jobID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete export job")
		return
	}

	if err := s.db.DeleteExportJob(r.Context(), instructorID, jobID); err != nil {
		if errors.Is(err, db.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "Export job not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to delete export job", "job_id", jobID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete export job")
		return
	}

	// Best effort; an orphaned object is caught by the retention sweep.
	if record.ObjectKey != nil && *record.ObjectKey != "" {
		if err := s.artifacts.Delete(r.Context(), *record.ObjectKey); err != nil {
			logger.Ctx(r.Context()).Warn("failed to delete export artifact",
				"job_id", jobID, "key", *record.ObjectKey, "error", err)
		}
	}

	logger.Ctx(r.Context()).Info("export job deleted", "job_id", jobID)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
