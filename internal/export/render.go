package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/gamelearn/analytics/internal/models"
)

// Report is a rendered-format-agnostic table. Every report type reduces to
// one of these before formatting.
type Report struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Render produces the report in the requested format.
func (r *Report) Render(format string) ([]byte, error) {
	switch format {
	case models.FormatCSV:
		return r.renderCSV()
	case models.FormatJSON:
		return r.renderJSON()
	case models.FormatXLSX:
		return r.renderXLSX()
	case models.FormatPDF:
		return r.renderPDF()
	}
	return nil, fmt.Errorf("unsupported export format: %s", format)
}

func (r *Report) renderCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(r.Headers); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range r.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Report) renderJSON() ([]byte, error) {
	records := make([]map[string]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := make(map[string]string, len(r.Headers))
		for i, h := range r.Headers {
			if i < len(row) {
				record[h] = row[i]
			}
		}
		records = append(records, record)
	}

	data, err := json.MarshalIndent(map[string]any{
		"report": r.Title,
		"rows":   records,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json report: %w", err)
	}
	return data, nil
}

func (r *Report) renderXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	f.SetSheetName("Sheet1", sheet)

	header := make([]any, len(r.Headers))
	for i, h := range r.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for i, row := range r.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute xlsx cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write xlsx row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Report) renderPDF() ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, r.Title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(r.Headers))

	pdf.SetFont("Helvetica", "B", 9)
	for _, h := range r.Headers {
		pdf.CellFormat(colWidth, 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range r.Rows {
		for _, v := range row {
			pdf.CellFormat(colWidth, 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch format {
	case models.FormatCSV:
		return "text/csv"
	case models.FormatJSON:
		return "application/json"
	case models.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case models.FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}
