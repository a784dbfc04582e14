package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/mind-engage/testcheck/internal/exam"
)

// column widths in mm, same proportions as the spreadsheet
var pdfWidths = [3]float64{15, 130, 30}

func renderPDF(t exam.Test, rows []Row, fontPath string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath != "" {
		pdf.AddUTF8Font("Results", "", fontPath)
		pdf.AddUTF8Font("Results", "B", fontPath)
		family = "Results"
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	title := "Test Results: " + t.TestID
	if subj := strings.TrimSpace(strings.Join([]string{t.Subject1, t.Subject2}, " ")); subj != "" {
		title += " (" + subj + ")"
	}
	pdf.MultiCell(0, 8, tr(title), "", "L", false)
	pdf.Ln(3)

	pdf.SetFont(family, "B", 11)
	for i, h := range headers {
		pdf.CellFormat(pdfWidths[i], 8, tr(h.(string)), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 11)
	for _, r := range rows {
		pdf.CellFormat(pdfWidths[0], 7, fmt.Sprintf("%d", r.No), "1", 0, "C", false, 0, "")
		pdf.CellFormat(pdfWidths[1], 7, tr(r.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(pdfWidths[2], 7, fmt.Sprintf("%g", r.Score), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
