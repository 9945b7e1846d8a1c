package export

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"cataid-backend/internal/report"
)

// ProgressRenderer turns a candidate's progress report into a byte stream.
type ProgressRenderer interface {
	Format() string
	ContentType() string
	Extension() string
	RenderProgress(doc report.ProgressDocument) ([]byte, error)
}

// GetProgress looks up a renderer that also renders progress reports.
func (r *Registry) GetProgress(format string) (ProgressRenderer, error) {
	rd, err := r.Get(format)
	if err != nil {
		return nil, err
	}
	pr, ok := rd.(ProgressRenderer)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q has no progress report", format)
	}
	return pr, nil
}

// ProgressFileName builds a download file name for a progress report.
func ProgressFileName(doc report.ProgressDocument, rd ProgressRenderer) string {
	return safeName(doc.Candidate.FullName, "candidate") + "_progress." + rd.Extension()
}

// RenderProgress lays out the history table, the first-to-latest comparison
// per section and per question, and any charts.
func (r *PDFRenderer) RenderProgress(doc report.ProgressDocument) ([]byte, error) {
	pdf, w := r.newDocument(doc.Title, "Vocational progress tracking", doc.GeneratedAt)

	pdf.AddPage()
	w.title(doc.Title, r.organisation, doc.Candidate.FullName)
	w.candidate(doc.Candidate)
	w.history(doc)
	w.charts(doc.Charts)
	w.comparison(doc)

	return output(pdf)
}

func (w *pdfWriter) history(doc report.ProgressDocument) {
	w.heading("Assessment Overview")
	if len(doc.History) == 0 {
		w.line(report.Placeholder)
		return
	}
	widths := []float64{30, 62, 20, 20, 24, 26}
	w.tableHeader(widths, []string{"Date", "Reference", "Score", "Max", "Percent", "Status"})
	for _, h := range doc.History {
		w.tableRow(widths, []string{
			report.FormatDate(&h.Date),
			h.Reference,
			strconv.Itoa(h.Total),
			strconv.Itoa(h.Max),
			fmt.Sprintf("%.2f%%", h.Percentage),
			h.Status,
		}, []string{"C", "L", "C", "C", "C", "C"})
	}

	w.pdf.Ln(2)
	w.labelled("First", fmt.Sprintf("%s (%d)", report.FormatDate(&doc.First.Date), doc.First.Total))
	w.labelled("Latest", fmt.Sprintf("%s (%d)", report.FormatDate(&doc.Latest.Date), doc.Latest.Total))
	w.labelled("Change", signed(doc.Difference))
}

func (w *pdfWriter) comparison(doc report.ProgressDocument) {
	w.heading("Section-wise Comparison")
	if len(doc.Sections) == 0 {
		w.line(report.Placeholder)
		return
	}
	widths := []float64{100, 26, 26, 30}
	w.tableHeader(widths, []string{"Section", "1st Score", "Latest", "Difference"})
	for _, s := range doc.Sections {
		w.tableRow(widths, deltaCells(s.ProgressDelta), []string{"L", "C", "C", "C"})
	}

	for _, s := range doc.Sections {
		if len(s.Questions) == 0 {
			continue
		}
		w.pdf.Ln(3)
		w.font("B", 12, colorTitle)
		w.pdf.MultiCell(0, 7, w.tr(s.Name), "", "L", false)
		w.tableHeader(widths, []string{"Question", "1st Score", "Latest", "Difference"})
		for _, q := range s.Questions {
			w.tableRow(widths, deltaCells(q), []string{"L", "C", "C", "C"})
		}
	}
}

func deltaCells(d report.ProgressDelta) []string {
	return []string{d.Name, strconv.Itoa(d.First), strconv.Itoa(d.Latest), signed(d.Difference)}
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
