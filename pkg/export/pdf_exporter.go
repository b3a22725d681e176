package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 190.0
	rowHeight  = 7.0
	headHeight = 8.0
)

// PDFExporter renders datasets into a paginated tabular statement.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render creates a PDF document with a title, the table body and a bold totals row.
// The header row is repeated on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	generated := e.now().UTC().Format("2006-01-02 15:04 MST")
	colWidth := pageWidth / float64(len(data.Headers))

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(pageWidth/2, 8, "Generated "+generated, "", 0, "L", false, 0, "")
		pdf.CellFormat(pageWidth/2, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	writeHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, headHeight, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	writeRow := func(row map[string]string, style string) {
		_, pageHeight := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		if pdf.GetY()+rowHeight > pageHeight-bottom-15 {
			pdf.AddPage()
			writeHeader()
		}
		pdf.SetFont("Arial", style, 9)
		for _, header := range data.Headers {
			align := "L"
			if data.isNumeric(header) {
				align = "R"
			}
			pdf.CellFormat(colWidth, rowHeight, row[header], "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.AddPage()
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}
	writeHeader()
	for _, row := range data.Rows {
		writeRow(row, "")
	}
	if data.Totals != nil {
		writeRow(data.Totals, "B")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
