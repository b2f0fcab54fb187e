package bill

import (
	"io"

	"github.com/phpdave11/gofpdf"
	"github.com/tiffindesk/api/internal/model"
)

// PDFRenderer lays the bill out on an A5 page.
type PDFRenderer struct {
	Title string
}

func (PDFRenderer) Ext() string         { return "pdf" }
func (PDFRenderer) ContentType() string { return "application/pdf" }

func (p PDFRenderer) Render(w io.Writer, o model.Order) error {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(p.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, h := range header(o) {
		pdf.CellFormat(0, 5, tr(h), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	widths := []float64{64, 14, 24, 26}
	for _, r := range billLines(o) {
		style := ""
		border := ""
		if r.bold {
			style = "B"
			border = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(widths[0], 6, tr(r.label), border, 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, r.qty, border, 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, r.price, border, 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, r.amount, border, 1, "R", false, 0, "")
	}
	return pdf.Output(w)
}
