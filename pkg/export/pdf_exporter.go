package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a tabular PDF. Timetable grids carry a
// date column plus 16 narrow session columns, so pages are landscape.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(8, 12, 8)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 9, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	// First column (date) gets double width; session columns share the rest.
	usable := 281.0
	var dateWidth, colWidth float64
	if len(data.Headers) > 1 {
		dateWidth = usable * 2 / float64(len(data.Headers)+1)
		colWidth = (usable - dateWidth) / float64(len(data.Headers)-1)
	} else {
		dateWidth = usable
	}

	pdf.SetFont("Arial", "B", 8)
	for i, header := range data.Headers {
		width := colWidth
		if i == 0 {
			width = dateWidth
		}
		pdf.CellFormat(width, 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for _, row := range data.Rows {
		for i := range data.Headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			width := colWidth
			if i == 0 {
				width = dateWidth
			}
			pdf.CellFormat(width, 6, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
