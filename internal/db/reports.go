package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportFilter is the subset of the canonical filter vocabulary that report
// queries understand. Parsed from the filters an export job was submitted
// with; unknown keys are ignored.
type ReportFilter struct {
	CourseIDs       []string
	DateFrom        *time.Time
	DateTo          *time.Time
	IncludeArchived bool
	InstructorID    string
}

// ParseReportFilter extracts a ReportFilter from a generic filter map.
// Dates use the YYYY-MM-DD form produced by the filter sync adapter.
func ParseReportFilter(instructorID string, filters map[string]any) ReportFilter {
	f := ReportFilter{InstructorID: instructorID}

	if ids, ok := filters["course_ids"].([]any); ok {
		for _, id := range ids {
			if s, ok := id.(string); ok {
				f.CourseIDs = append(f.CourseIDs, s)
			}
		}
	}
	if ids, ok := filters["course_ids"].([]string); ok {
		f.CourseIDs = append(f.CourseIDs, ids...)
	}
	if v, ok := filters["include_archived"].(bool); ok {
		f.IncludeArchived = v
	}
	if s, ok := filters["date_from"].(string); ok {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			f.DateFrom = &t
		}
	}
	if s, ok := filters["date_to"].(string); ok {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			// End of day, exclusive bound
			end := t.Add(24 * time.Hour)
			f.DateTo = &end
		}
	}

	return f
}

// where builds the shared filter clause over a course alias and a timestamp
// column. Args are appended starting at $1.
func (f ReportFilter) where(tsColumn string) (string, []any) {
	clauses := []string{"c.instructor_id = $1"}
	args := []any{f.InstructorID}

	if !f.IncludeArchived {
		clauses = append(clauses, "c.archived = FALSE")
	}
	if len(f.CourseIDs) > 0 {
		placeholders := make([]string, len(f.CourseIDs))
		for i, id := range f.CourseIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("c.id IN (%s)", strings.Join(placeholders, ",")))
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		clauses = append(clauses, fmt.Sprintf("%s >= $%d", tsColumn, len(args)))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		clauses = append(clauses, fmt.Sprintf("%s < $%d", tsColumn, len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// RevenueRow aggregates succeeded payments per course.
type RevenueRow struct {
	CourseID   string
	Title      string
	Sales      int64
	Revenue    decimal.Decimal
	Currency   string
	LastSaleAt *time.Time
}

// RevenueReport sums succeeded payments per course under the filter.
func (db *DB) RevenueReport(ctx context.Context, f ReportFilter) ([]RevenueRow, error) {
	where, args := f.where("p.created_at")
	query := fmt.Sprintf(`
		SELECT c.id, c.title, COUNT(p.id), COALESCE(SUM(p.amount), 0), c.currency, MAX(p.created_at)
		FROM courses c
		LEFT JOIN payments p ON p.course_id = c.id AND p.status = 'succeeded'
		WHERE %s
		GROUP BY c.id, c.title, c.currency
		ORDER BY c.id
	`, where)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue report: %w", err)
	}
	defer rows.Close()

	var report []RevenueRow
	for rows.Next() {
		var row RevenueRow
		var revenue string
		if err := rows.Scan(&row.CourseID, &row.Title, &row.Sales, &revenue, &row.Currency, &row.LastSaleAt); err != nil {
			return nil, fmt.Errorf("failed to scan revenue row: %w", err)
		}
		if row.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, fmt.Errorf("failed to parse revenue amount: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revenue report: %w", err)
	}

	return report, nil
}

// VideoRow aggregates lesson watch progress per course.
type VideoRow struct {
	CourseID       string
	Title          string
	Viewers        int64
	LessonsTracked int64
	WatchedSeconds int64
	CompletionRate float64
}

// VideoReport aggregates video progress per course under the filter.
func (db *DB) VideoReport(ctx context.Context, f ReportFilter) ([]VideoRow, error) {
	where, args := f.where("vp.updated_at")
	query := fmt.Sprintf(`
		SELECT c.id, c.title,
			COUNT(DISTINCT vp.student_id),
			COUNT(DISTINCT vp.lesson_id),
			COALESCE(SUM(vp.watched_seconds), 0),
			COALESCE(AVG(CASE WHEN vp.completed THEN 1.0 ELSE 0.0 END), 0)
		FROM courses c
		LEFT JOIN video_progress vp ON vp.course_id = c.id
		WHERE %s
		GROUP BY c.id, c.title
		ORDER BY c.id
	`, where)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query video report: %w", err)
	}
	defer rows.Close()

	var report []VideoRow
	for rows.Next() {
		var row VideoRow
		if err := rows.Scan(&row.CourseID, &row.Title, &row.Viewers, &row.LessonsTracked, &row.WatchedSeconds, &row.CompletionRate); err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video report: %w", err)
	}

	return report, nil
}

// PerformanceRow aggregates enrollment and completion per course.
type PerformanceRow struct {
	CourseID       string
	Title          string
	Enrollments    int64
	Completions    int64
	CompletionRate float64
}

// PerformanceReport aggregates enrollments and completions under the filter.
func (db *DB) PerformanceReport(ctx context.Context, f ReportFilter) ([]PerformanceRow, error) {
	where, args := f.where("e.enrolled_at")
	query := fmt.Sprintf(`
		SELECT c.id, c.title,
			COUNT(e.id),
			COUNT(e.completed_at),
			COALESCE(COUNT(e.completed_at)::float / NULLIF(COUNT(e.id), 0), 0)
		FROM courses c
		LEFT JOIN enrollments e ON e.course_id = c.id
		WHERE %s
		GROUP BY c.id, c.title
		ORDER BY c.id
	`, where)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance report: %w", err)
	}
	defer rows.Close()

	var report []PerformanceRow
	for rows.Next() {
		var row PerformanceRow
		if err := rows.Scan(&row.CourseID, &row.Title, &row.Enrollments, &row.Completions, &row.CompletionRate); err != nil {
			return nil, fmt.Errorf("failed to scan performance row: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance report: %w", err)
	}

	return report, nil
}
