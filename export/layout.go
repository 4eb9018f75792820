package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 7.0
)

// layout wraps the fpdf drawing calls for the fixed document sections.
type layout struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	width float64
	left  float64
}

func newLayout(generated time.Time) *layout {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(Title, true)
	pdf.SetCreator("go-portfolio", true)
	pdf.SetCreationDate(generated)
	pdf.SetModificationDate(generated)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	l := &layout{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}

	date := generated.Format("January 2, 2006")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 9)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, l.tr(fmt.Sprintf("Generated on %s - Page %d of {nb}", date, pdf.PageNo())),
			"", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	l.left = left
	l.width = pageWidth - left - right
	return l
}

func (l *layout) title(text string) {
	l.pdf.SetFont(fontFamily, "B", 24)
	l.pdf.SetTextColor(33, 37, 41)
	l.pdf.CellFormat(0, 14, l.tr(text), "", 1, "C", false, 0, "")
	l.pdf.Ln(2)
}

func (l *layout) divider() {
	y := l.pdf.GetY()
	l.pdf.SetDrawColor(180, 180, 180)
	l.pdf.SetLineWidth(0.5)
	l.pdf.Line(l.left, y, l.left+l.width, y)
	l.pdf.Ln(6)
}

func (l *layout) section(text string) {
	l.pdf.Ln(4)
	l.pdf.SetFont(fontFamily, "B", 15)
	l.pdf.SetTextColor(33, 37, 41)
	l.pdf.CellFormat(0, 9, l.tr(text), "", 1, "L", false, 0, "")
	l.pdf.Ln(1)
}

// field prints "label: value", with N/A for blank values.
func (l *layout) field(label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = NotAvailable
	}
	l.pdf.SetFont(fontFamily, "", 12)
	l.pdf.SetTextColor(60, 60, 60)
	l.pdf.CellFormat(0, lineHeight, l.tr(label+": "+value), "", 1, "L", false, 0, "")
}

func (l *layout) paragraph(text string) {
	l.pdf.SetFont(fontFamily, "", 12)
	l.pdf.SetTextColor(60, 60, 60)
	l.pdf.MultiCell(l.width, lineHeight, l.tr(text), "", "L", false)
}

func (l *layout) bullet(text string) {
	l.pdf.SetFont(fontFamily, "", 12)
	l.pdf.SetTextColor(60, 60, 60)
	l.pdf.CellFormat(0, lineHeight, l.tr("• "+text), "", 1, "L", false, 0, "")
}
