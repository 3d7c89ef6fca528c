package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// StatementLine is a single ledger entry on a fee statement.
type StatementLine struct {
	Date        time.Time
	Amount      float64
	Method      string
	Reference   string
	Description string
}

// Statement carries everything needed to render a student fee statement.
type Statement struct {
	StudentName   string
	Class         string
	AcademicYear  string
	TotalFees     float64
	AmountPaid    float64
	AmountDue     float64
	PaymentStatus string
	GeneratedAt   time.Time
	Lines         []StatementLine
}

// StatementRenderer renders fee statements into PDF bytes.
type StatementRenderer struct{}

// NewStatementRenderer builds a PDF statement renderer.
func NewStatementRenderer() *StatementRenderer {
	return &StatementRenderer{}
}

// Render produces the PDF document for the statement.
func (r *StatementRenderer) Render(st Statement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Fee Statement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Golden Light School - Fee Statement", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", st.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Student: %s", st.StudentName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Class: %s    Academic year: %s", st.Class, st.AcademicYear), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	headers := []struct {
		label string
		width float64
	}{
		{"Date", 28},
		{"Amount", 28},
		{"Method", 32},
		{"Reference", 40},
		{"Description", 62},
	}
	for _, h := range headers {
		pdf.CellFormat(h.width, 8, h.label, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range st.Lines {
		pdf.CellFormat(28, 7, line.Date.Format("2006-01-02"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 7, fmt.Sprintf("%.2f", line.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 7, line.Method, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, line.Reference, "1", 0, "L", false, 0, "")
		pdf.CellFormat(62, 7, line.Description, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total fees: %.2f", st.TotalFees), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Amount paid: %.2f", st.AmountPaid), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Amount due: %.2f", st.AmountDue), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", st.PaymentStatus), "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render statement pdf: %w", err)
	}
	return buf.Bytes(), nil
}
