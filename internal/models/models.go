// Package models defines the wire types shared by the API server and the
// orchestrator client. Every endpoint has an explicit request/response shape;
// nothing at the HTTP boundary is dynamically typed.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Export report types.
const (
	ExportTypeRevenue     = "revenue"
	ExportTypeVideo       = "video"
	ExportTypePerformance = "performance"
)

// Export file formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Export job statuses. Jobs move pending -> processing -> completed|failed;
// completed and failed are terminal.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ValidExportType reports whether t is a known report type.
func ValidExportType(t string) bool {
	switch t {
	case ExportTypeRevenue, ExportTypeVideo, ExportTypePerformance:
		return true
	}
	return false
}

// ValidExportFormat reports whether f is a supported output format.
func ValidExportFormat(f string) bool {
	switch f {
	case FormatCSV, FormatJSON, FormatPDF, FormatXLSX:
		return true
	}
	return false
}

// TerminalJobStatus reports whether s stops polling.
func TerminalJobStatus(s string) bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ExportRequest is the body of POST /api/analytics/export.
type ExportRequest struct {
	Type       string         `json:"type"`
	ResourceID string         `json:"resourceId,omitempty"`
	Format     string         `json:"format"`
	Filters    map[string]any `json:"filters,omitempty"`
	Async      bool           `json:"async"`
}

// ExportSubmitResponse is returned on successful job submission.
type ExportSubmitResponse struct {
	JobID string `json:"jobId"`
}

// ExportJob is the client-visible view of an export job. Status is mutated
// only by the backend; clients poll and never write it.
type ExportJob struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ExportStatusResponse is returned by GET /api/analytics/export?jobId=...
type ExportStatusResponse struct {
	Success bool       `json:"success"`
	Job     *ExportJob `json:"job,omitempty"`
}

// ExportJobListResponse is returned by GET /api/analytics/export/jobs.
type ExportJobListResponse struct {
	Success bool        `json:"success"`
	Jobs    []ExportJob `json:"jobs"`
}

// EmbedRequest is the body of the provider mint endpoints. Exactly one of
// InsightID/DashboardID (PostHog) or DashboardID/QuestionID (Metabase)
// identifies the resource.
type EmbedRequest struct {
	InsightID   string         `json:"insightId,omitempty"`
	DashboardID string         `json:"dashboardId,omitempty"`
	QuestionID  string         `json:"questionId,omitempty"`
	Filters     map[string]any `json:"filters,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Refresh     bool           `json:"refresh,omitempty"`
}

// EmbedResponse carries a signed embed URL and its expiry.
type EmbedResponse struct {
	URL       string    `json:"url"`
	IframeURL string    `json:"iframeUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Payment statuses as reported by the payment provider webhook sink.
const (
	PaymentSucceeded             = "succeeded"
	PaymentFailed                = "failed"
	PaymentCancelled             = "cancelled"
	PaymentProcessing            = "processing"
	PaymentRequiresPaymentMethod = "requires_payment_method"
)

// TerminalPaymentStatus reports whether s stops payment polling.
func TerminalPaymentStatus(s string) bool {
	switch s {
	case PaymentSucceeded, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// PaymentData is the payload of GET /api/payments/status/{paymentId}.
type PaymentData struct {
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Customer      string          `json:"customer"`
	PaymentMethod string          `json:"paymentMethod"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// PaymentStatusResponse wraps PaymentData.
type PaymentStatusResponse struct {
	Success bool         `json:"success"`
	Data    *PaymentData `json:"data,omitempty"`
}

// OpenSessionRequest starts a tracked learning session.
type OpenSessionRequest struct {
	SubjectID string `json:"subjectId"`
}

// OpenSessionResponse returns the new session ID.
type OpenSessionResponse struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
}

// CloseSessionRequest reports the final session duration. Reason is
// "unmount", "unload" or "inactivity".
type CloseSessionRequest struct {
	DurationSeconds int64  `json:"durationSeconds"`
	Reason          string `json:"reason,omitempty"`
}
