package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gamelearn/analytics/internal/models"
)

func sampleReport() *Report {
	return &Report{
		Title:   "Revenue by course",
		Headers: []string{"course_id", "title", "revenue"},
		Rows: [][]string{
			{"c1", "Go Basics", "199.00"},
			{"c2", "Advanced SQL", "349.50"},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	data, err := sampleReport().Render(models.FormatCSV)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != "course_id,title,revenue" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "c2,Advanced SQL,349.50" {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := sampleReport().Render(models.FormatJSON)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var payload struct {
		Report string              `json:"report"`
		Rows   []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if payload.Report != "Revenue by course" {
		t.Errorf("report = %q", payload.Report)
	}
	if len(payload.Rows) != 2 || payload.Rows[0]["course_id"] != "c1" || payload.Rows[1]["revenue"] != "349.50" {
		t.Errorf("rows = %v", payload.Rows)
	}
}

func TestRenderXLSX(t *testing.T) {
	data, err := sampleReport().Render(models.FormatXLSX)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// xlsx files are zip archives
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Errorf("output does not look like an xlsx file: % x", data[:4])
	}
}

func TestRenderPDF(t *testing.T) {
	data, err := sampleReport().Render(models.FormatPDF)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not look like a pdf: % x", data[:4])
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := sampleReport().Render("docx"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		models.FormatCSV:  "text/csv",
		models.FormatJSON: "application/json",
		models.FormatPDF:  "application/pdf",
		models.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"other":           "application/octet-stream",
	}
	for format, want := range cases {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}
