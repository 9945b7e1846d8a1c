package export

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"cataid-backend/internal/report"
)

// Sheet names of the workbook.
const (
	SheetSummary         = "Summary"
	SheetSections        = "Sections"
	SheetQuestions       = "Questions"
	SheetRecommendations = "Recommendations"
	SheetCharts          = "Charts"
)

// XLSXRenderer renders the document as a workbook with one sheet per part.
type XLSXRenderer struct{}

// NewXLSXRenderer creates an XLSX renderer.
func NewXLSXRenderer() *XLSXRenderer { return &XLSXRenderer{} }

func (r *XLSXRenderer) Format() string      { return FormatXLSX }
func (r *XLSXRenderer) ContentType() string { return ContentTypeXLSX }
func (r *XLSXRenderer) Extension() string   { return "xlsx" }

func (r *XLSXRenderer) Render(doc report.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, errors.Wrap(err, "failed to name summary sheet")
	}
	for _, name := range []string{SheetSections, SheetQuestions, SheetRecommendations} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, errors.Wrapf(err, "failed to add sheet %s", name)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"004080"}, Pattern: 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create header style")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create label style")
	}

	steps := []func(*excelize.File, report.Document, int, int) error{
		writeSummary, writeSections, writeQuestions, writeRecommendations,
	}
	for _, step := range steps {
		if err := step(f, doc, header, bold); err != nil {
			return nil, err
		}
	}
	writeCharts(f, doc)

	created := doc.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z")
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    doc.Title,
		Subject:  "Vocational assessment",
		Creator:  "cataid-backend",
		Created:  created,
		Modified: created,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to set workbook properties")
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to write workbook")
	}
	return canonicalPackage(buf.Bytes())
}

func writeSummary(f *excelize.File, doc report.Document, _, bold int) error {
	c, a := doc.Candidate, doc.Assessment
	rows := [][]interface{}{
		{"Title", doc.Title},
		{"Candidate", c.FullName},
		{"Gender", c.Gender},
		{"Date of Birth", report.FormatDate(c.DateOfBirth)},
		{"Disability Type", c.DisabilityType},
		{"Education", c.Education},
		{"Languages", c.Languages},
		{"Residential Area", c.ResidentialArea},
		{"Reference", a.Reference},
		{"Status", a.Status},
		{"Submitted", report.FormatDate(a.SubmittedAt)},
		{"Reviewed", report.FormatDate(a.ReviewedAt)},
		{"Total Score", doc.Score.TotalScore},
		{"Max Score", doc.Score.MaxScore},
		{"Percentage", doc.Percentage},
		{"Summary Comments", doc.SummaryComments},
		{"Assessor", doc.Signatures.Assessor},
		{"Lead", doc.Signatures.Lead},
	}
	for i, name := range doc.Evidence {
		label := ""
		if i == 0 {
			label = "Evidence"
		}
		rows = append(rows, []interface{}{label, name})
	}
	if err := writeRows(f, SheetSummary, 1, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return errors.Wrap(err, "failed to style summary labels")
	}
	_ = f.SetColWidth(SheetSummary, "A", "A", 20)
	_ = f.SetColWidth(SheetSummary, "B", "B", 60)
	return nil
}

func writeSections(f *excelize.File, doc report.Document, header, _ int) error {
	rows := [][]interface{}{{"Section", "Score", "Max Score", "Percentage", "Tier"}}
	for _, s := range doc.Sections {
		rows = append(rows, []interface{}{s.Category, s.Score, s.MaxScore, s.Percentage, s.Tier})
	}
	if err := writeRows(f, SheetSections, 1, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetSections, "A", "A", 36)
	return styleHeader(f, SheetSections, "E1", header)
}

func writeQuestions(f *excelize.File, doc report.Document, header, _ int) error {
	rows := [][]interface{}{{"Section", "ID", "Question", "Answer", "Score", "Comment"}}
	for _, s := range doc.Sections {
		for _, q := range s.Rows {
			rows = append(rows, []interface{}{s.Category, q.ID, q.Text, q.Answer, q.Score, q.Comment})
		}
	}
	if err := writeRows(f, SheetQuestions, 1, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetQuestions, "A", "A", 28)
	_ = f.SetColWidth(SheetQuestions, "C", "C", 60)
	_ = f.SetColWidth(SheetQuestions, "F", "F", 40)
	return styleHeader(f, SheetQuestions, "F1", header)
}

func writeRecommendations(f *excelize.File, doc report.Document, header, _ int) error {
	rows := [][]interface{}{{"Section", "Support", "Recommendation"}}
	for _, b := range doc.Recommendations {
		for _, item := range b.Items {
			rows = append(rows, []interface{}{b.Category, b.Tier.String(), item})
		}
	}
	if !doc.HasRecommendations() {
		rows = append(rows, []interface{}{"-", "none", "No recommendations required"})
	}
	if err := writeRows(f, SheetRecommendations, 1, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetRecommendations, "A", "A", 28)
	_ = f.SetColWidth(SheetRecommendations, "C", "C", 80)
	return styleHeader(f, SheetRecommendations, "C1", header)
}

// writeCharts embeds the charts that decode as images. Anything else is
// left out without failing the export.
func writeCharts(f *excelize.File, doc report.Document) {
	row := 1
	for _, ch := range doc.Charts {
		_, ext, ok := imageKind(ch.Data)
		if !ok {
			continue
		}
		if row == 1 {
			if _, err := f.NewSheet(SheetCharts); err != nil {
				return
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if ch.Caption != "" {
			_ = f.SetCellValue(SheetCharts, cell, ch.Caption)
			cell, _ = excelize.CoordinatesToCellName(1, row+1)
		}
		err := f.AddPictureFromBytes(SheetCharts, cell, &excelize.Picture{
			Extension: ext,
			File:      ch.Data,
			Format:    &excelize.GraphicOptions{AltText: ch.Name, ScaleX: 1, ScaleY: 1},
		})
		if err != nil {
			continue
		}
		row += 24
	}
}

func writeRows(f *excelize.File, sheet string, start int, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		if err != nil {
			return errors.Wrap(err, "bad cell reference")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write %s row %d", sheet, start+i)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet, last string, style int) error {
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return errors.Wrapf(err, "failed to style %s header", sheet)
	}
	return nil
}
