package testutil

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamelearn/analytics/internal/api"
	"github.com/gamelearn/analytics/internal/db"
)

// AuthenticatedRequest creates an HTTP request carrying an instructor
// context, simulating the auth middleware.
func AuthenticatedRequest(t *testing.T, method, url string, body interface{}, instructorID string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(bodyJSON)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	ctx := context.WithValue(req.Context(), api.InstructorIDContextKey(), instructorID)
	return req.WithContext(ctx)
}

// ParseJSONResponse decodes JSON response body into v
func ParseJSONResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v. Body: %s", err, w.Body.String())
	}
}

// AssertStatus checks HTTP status code matches expected
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()

	if w.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertErrorResponse checks error response format and message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	t.Helper()

	AssertStatus(t, w, expectedStatus)

	var resp map[string]string
	ParseJSONResponse(t, w, &resp)

	if resp["error"] != expectedMessage {
		t.Errorf("expected error message %q, got %q", expectedMessage, resp["error"])
	}
}

// CreateTestAPIKey stores a fresh random API key for an instructor and
// returns the raw key material for use in Authorization headers.
func CreateTestAPIKey(t *testing.T, env *TestEnvironment, instructorID string) string {
	t.Helper()

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("failed to generate API key: %v", err)
	}
	key := "glk_" + hex.EncodeToString(raw)

	if _, err := env.DB.CreateAPIKey(env.Ctx, instructorID, api.HashAPIKey(key), "test key"); err != nil {
		t.Fatalf("failed to create test API key: %v", err)
	}
	return key
}

// CreateTestCourse inserts a course owned by instructorID.
func CreateTestCourse(t *testing.T, env *TestEnvironment, instructorID, title string, archived bool) string {
	t.Helper()

	courseID := "course-" + uuid.New().String()[:8]
	query := `
		INSERT INTO courses (id, title, instructor_id, price, archived)
		VALUES ($1, $2, $3, 49.99, $4)
	`
	if _, err := env.DB.Exec(env.Ctx, query, courseID, title, instructorID, archived); err != nil {
		t.Fatalf("failed to create test course: %v", err)
	}
	return courseID
}

// CreateTestPayment inserts a payment row and returns its ID.
func CreateTestPayment(t *testing.T, env *TestEnvironment, courseID, status string, amount decimal.Decimal) string {
	t.Helper()

	payment := &db.Payment{
		ID:            uuid.New().String(),
		CourseID:      courseID,
		Amount:        amount,
		Currency:      "usd",
		Status:        status,
		CustomerEmail: "student@example.com",
		PaymentMethod: "card",
	}
	if err := env.DB.RecordPayment(env.Ctx, payment); err != nil {
		t.Fatalf("failed to create test payment: %v", err)
	}
	return payment.ID
}

// CreateTestEnrollment enrolls a student, optionally completed.
func CreateTestEnrollment(t *testing.T, env *TestEnvironment, courseID, studentID string, completed bool) {
	t.Helper()

	var completedAt *time.Time
	if completed {
		now := time.Now().UTC()
		completedAt = &now
	}
	query := `
		INSERT INTO enrollments (course_id, student_id, completed_at)
		VALUES ($1, $2, $3)
	`
	if _, err := env.DB.Exec(env.Ctx, query, courseID, studentID, completedAt); err != nil {
		t.Fatalf("failed to create test enrollment: %v", err)
	}
}

// CreateTestVideoProgress records watch progress for a lesson.
func CreateTestVideoProgress(t *testing.T, env *TestEnvironment, courseID, lessonID, studentID string, watched, total int64) {
	t.Helper()

	query := `
		INSERT INTO video_progress (course_id, lesson_id, student_id, watched_seconds, total_seconds, completed)
		VALUES ($1, $2, $3, $4, $5, $4 >= $5)
	`
	if _, err := env.DB.Exec(env.Ctx, query, courseID, lessonID, studentID, watched, total); err != nil {
		t.Fatalf("failed to create test video progress: %v", err)
	}
}
