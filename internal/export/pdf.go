package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"cataid-backend/internal/report"
)

const (
	pdfMargin     = 14.0
	pdfLineHeight = 6.0
	pdfCellPad    = 1.5
	chartMaxW     = 150.0
	chartMaxH     = 90.0
)

type rgb struct{ r, g, b int }

var (
	colorTitle   = rgb{0, 64, 140}
	colorRed     = rgb{192, 0, 0}
	colorGreen   = rgb{0, 128, 0}
	colorText    = rgb{0, 0, 0}
	colorMuted   = rgb{90, 90, 90}
	colorHeaderF = rgb{0, 64, 128}
	colorWhite   = rgb{255, 255, 255}
)

// PDFOption configures the PDF renderer.
type PDFOption func(*PDFRenderer)

// WithOrganisation sets the organisation line printed under the title.
func WithOrganisation(name string) PDFOption {
	return func(r *PDFRenderer) { r.organisation = strings.TrimSpace(name) }
}

// WithAuthor sets the PDF author metadata.
func WithAuthor(name string) PDFOption {
	return func(r *PDFRenderer) {
		if strings.TrimSpace(name) != "" {
			r.author = name
		}
	}
}

// PDFRenderer renders an A4 assessment report.
type PDFRenderer struct {
	organisation string
	author       string
}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer(opts ...PDFOption) *PDFRenderer {
	r := &PDFRenderer{author: "CAT-AID System"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PDFRenderer) Format() string      { return FormatPDF }
func (r *PDFRenderer) ContentType() string { return ContentTypePDF }
func (r *PDFRenderer) Extension() string   { return "pdf" }

// Render lays the document out page by page. Charts that fail to decode or
// register are skipped; everything else is always rendered.
func (r *PDFRenderer) Render(doc report.Document) ([]byte, error) {
	pdf, w := r.newDocument(doc.Title, "Vocational assessment", doc.GeneratedAt)

	pdf.AddPage()
	w.title(doc.Title, r.organisation, doc.Candidate.FullName+" - "+report.FormatDate(doc.Assessment.SubmittedAt))
	w.candidate(doc.Candidate)
	w.summary(doc)
	w.recommendations(doc)
	w.sections(doc)
	w.notes(doc)
	w.charts(doc.Charts)
	w.signatures(doc)

	return output(pdf)
}

func (r *PDFRenderer) newDocument(title, subject string, created time.Time) (*gofpdf.Fpdf, *pdfWriter) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin+6)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(created)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(r.author, true)
	pdf.SetCreator("cataid-backend", true)
	pdf.SetSubject(subject, true)
	pdf.AliasNbPages("")

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		w.font("I", 9, colorMuted)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return pdf, w
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	if pdf.Err() {
		return nil, errors.Wrap(pdf.Error(), "failed to lay out pdf")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to write pdf")
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (w *pdfWriter) font(style string, size float64, c rgb) {
	w.pdf.SetFont("Helvetica", style, size)
	w.pdf.SetTextColor(c.r, c.g, c.b)
}

func (w *pdfWriter) heading(text string) {
	w.pdf.Ln(3)
	w.font("B", 13, colorTitle)
	w.pdf.CellFormat(0, 8, w.tr(text), "B", 1, "L", false, 0, "")
	w.pdf.Ln(2)
}

func (w *pdfWriter) line(text string) {
	w.font("", 11, colorText)
	w.pdf.MultiCell(0, pdfLineHeight, w.tr(text), "", "L", false)
}

func (w *pdfWriter) labelled(label, value string) {
	w.font("B", 10, colorText)
	w.pdf.CellFormat(42, pdfLineHeight, w.tr(label+":"), "", 0, "L", false, 0, "")
	w.font("", 10, colorText)
	w.pdf.MultiCell(0, pdfLineHeight, w.tr(value), "", "L", false)
}

func (w *pdfWriter) title(title, organisation, sub string) {
	w.font("B", 18, colorTitle)
	w.pdf.MultiCell(0, 9, w.tr(title), "", "C", false)
	if organisation != "" {
		w.font("", 11, colorMuted)
		w.pdf.CellFormat(0, 6, w.tr(organisation), "", 1, "C", false, 0, "")
	}
	w.font("", 11, colorText)
	w.pdf.CellFormat(0, 7, w.tr(sub), "", 1, "C", false, 0, "")
}

func (w *pdfWriter) candidate(c report.Candidate) {
	w.heading("Candidate Information")
	w.labelled("Name", c.FullName)
	w.labelled("Gender", c.Gender)
	w.labelled("DOB", report.FormatDate(c.DateOfBirth))
	w.labelled("Disability Type", c.DisabilityType)
	w.labelled("Education", c.Education)
	w.labelled("Languages", c.Languages)
	w.labelled("Residential Area", c.ResidentialArea)
	w.labelled("Address", c.Address)
	w.labelled("Contact", c.ContactNumber)
}

func (w *pdfWriter) summary(doc report.Document) {
	a := doc.Assessment
	w.heading("Summary")
	w.labelled("Reference", a.Reference)
	w.labelled("Total Score", fmt.Sprintf("%d / %d", doc.Score.TotalScore, doc.Score.MaxScore))
	w.labelled("Overall", fmt.Sprintf("%.2f%%", doc.Percentage))
	w.labelled("Status", a.Status)
	w.labelled("Submitted", report.FormatDate(a.SubmittedAt))
	w.labelled("Reviewed", report.FormatDate(a.ReviewedAt))
	if a.CatalogVersion != "" {
		w.labelled("Catalog", a.CatalogVersion)
	}

	if len(doc.Sections) == 0 {
		return
	}
	w.pdf.Ln(2)
	widths := []float64{100, 26, 26, 30}
	w.tableHeader(widths, []string{"Section", "Score", "Max", "Percent"})
	for _, s := range doc.Sections {
		w.tableRow(widths, []string{
			s.Category,
			fmt.Sprintf("%d", s.Score),
			fmt.Sprintf("%d", s.MaxScore),
			fmt.Sprintf("%.2f%%", s.Percentage),
		}, []string{"L", "C", "C", "C"})
	}
}

func (w *pdfWriter) recommendations(doc report.Document) {
	w.heading("Recommendations")
	if !doc.HasRecommendations() {
		w.font("B", 12, colorGreen)
		w.pdf.MultiCell(0, pdfLineHeight, w.tr("No recommendations required - all domains show strong performance."), "", "L", false)
		return
	}
	for _, b := range doc.Recommendations {
		w.font("B", 12, colorRed)
		label := b.Category
		if b.Tier.String() != "none" {
			label += " (" + b.Tier.String() + " support)"
		}
		w.pdf.MultiCell(0, 7, w.tr(label), "", "L", false)
		w.font("", 11, colorText)
		for _, item := range b.Items {
			x := w.pdf.GetX()
			w.pdf.CellFormat(6, pdfLineHeight, w.tr("-"), "", 0, "R", false, 0, "")
			w.pdf.MultiCell(0, pdfLineHeight, w.tr(item), "", "L", false)
			w.pdf.SetX(x)
		}
		w.pdf.Ln(1)
	}
}

func (w *pdfWriter) sections(doc report.Document) {
	w.heading("Section Breakdown")
	if len(doc.Sections) == 0 {
		w.line(report.Placeholder)
		return
	}
	widths := []float64{98, 18, 66}
	for _, s := range doc.Sections {
		w.font("B", 12, colorTitle)
		w.pdf.MultiCell(0, 7, w.tr(fmt.Sprintf("%s  (%d / %d)", s.Category, s.Score, s.MaxScore)), "", "L", false)
		w.tableHeader(widths, []string{"Question", "Score", "Comments"})
		for _, row := range s.Rows {
			w.tableRow(widths, []string{row.Text, row.Score, row.Comment}, []string{"L", "C", "L"})
		}
		w.pdf.Ln(3)
	}
}

func (w *pdfWriter) notes(doc report.Document) {
	w.heading("Summary Comments")
	w.line(doc.SummaryComments)
	if len(doc.Evidence) == 0 {
		return
	}
	w.heading("Evidence Files")
	for _, name := range doc.Evidence {
		w.line("- " + name)
	}
}

func (w *pdfWriter) charts(charts []report.Chart) {
	placed := 0
	for i, ch := range charts {
		kind, _, ok := imageKind(ch.Data)
		if !ok {
			continue
		}
		name := fmt.Sprintf("chart-%d", i)
		info := w.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: kind}, bytes.NewReader(ch.Data))
		if w.pdf.Err() || info == nil || info.Width() <= 0 || info.Height() <= 0 {
			w.pdf.ClearError()
			continue
		}
		if placed == 0 {
			w.heading("Charts")
		}
		placed++

		iw, ih := fit(info.Width(), info.Height(), chartMaxW, chartMaxH)
		if w.remaining() < ih+10 {
			w.pdf.AddPage()
		}
		pageW, _ := w.pdf.GetPageSize()
		x := (pageW - iw) / 2
		w.pdf.ImageOptions(name, x, w.pdf.GetY(), iw, ih, false, gofpdf.ImageOptions{ImageType: kind}, 0, "")
		w.pdf.SetY(w.pdf.GetY() + ih + 2)
		if ch.Caption != "" {
			w.font("I", 9, colorMuted)
			w.pdf.CellFormat(0, 5, w.tr(ch.Caption), "", 1, "C", false, 0, "")
		}
		w.pdf.Ln(3)
	}
}

func (w *pdfWriter) signatures(doc report.Document) {
	if w.remaining() < 30 {
		w.pdf.AddPage()
	}
	w.pdf.Ln(12)
	w.font("", 11, colorText)
	half := 91.0
	w.pdf.CellFormat(half, pdfLineHeight, "Assessor Signature: ____________________", "", 0, "L", false, 0, "")
	w.pdf.CellFormat(half, pdfLineHeight, "Lead Signature: ____________________", "", 1, "L", false, 0, "")
	w.font("B", 11, colorText)
	w.pdf.CellFormat(half, pdfLineHeight, w.tr(doc.Signatures.Assessor), "", 0, "L", false, 0, "")
	w.pdf.CellFormat(half, pdfLineHeight, w.tr(doc.Signatures.Lead), "", 1, "L", false, 0, "")
}

func (w *pdfWriter) tableHeader(widths []float64, cols []string) {
	if w.remaining() < 2*pdfLineHeight+2 {
		w.pdf.AddPage()
	}
	w.font("B", 10, colorWhite)
	w.pdf.SetFillColor(colorHeaderF.r, colorHeaderF.g, colorHeaderF.b)
	for i, c := range cols {
		w.pdf.CellFormat(widths[i], pdfLineHeight+1, w.tr(c), "1", 0, "C", true, 0, "")
	}
	w.pdf.Ln(-1)
}

// tableRow draws a row whose height follows the tallest wrapped cell.
func (w *pdfWriter) tableRow(widths []float64, cols []string, aligns []string) {
	w.font("", 10, colorText)

	lines := 1
	for i, c := range cols {
		n := len(w.pdf.SplitLines([]byte(w.tr(c)), widths[i]-2*pdfCellPad))
		if n > lines {
			lines = n
		}
	}
	h := float64(lines)*5 + 2*pdfCellPad
	if w.remaining() < h {
		w.pdf.AddPage()
	}

	x, y := w.pdf.GetX(), w.pdf.GetY()
	for i, c := range cols {
		w.pdf.Rect(x, y, widths[i], h, "D")
		w.pdf.SetXY(x+pdfCellPad, y+pdfCellPad)
		w.pdf.MultiCell(widths[i]-2*pdfCellPad, 5, w.tr(c), "", aligns[i], false)
		x += widths[i]
	}
	w.pdf.SetXY(pdfMargin, y+h)
}

func (w *pdfWriter) remaining() float64 {
	_, pageH := w.pdf.GetPageSize()
	_, _, _, bottom := w.pdf.GetMargins()
	return pageH - bottom - w.pdf.GetY()
}

func fit(w, h, maxW, maxH float64) (float64, float64) {
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}
	return w * scale, h * scale
}
