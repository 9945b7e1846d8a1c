package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"cataid-backend/internal/answers"
	"cataid-backend/internal/export"
	"cataid-backend/internal/recommend"
	"cataid-backend/internal/report"
	"cataid-backend/internal/scoring"
)

type renderOptions struct {
	format        string
	out           string
	title         string
	organisation  string
	candidate     string
	assessor      string
	reference     string
	date          string
	barChart      string
	doughnutChart string
}

func newRenderCommand(opts *rootOptions) *cobra.Command {
	ro := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render ANSWERS",
		Short: "Render a report file (pdf or xlsx) for an answer file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, ro, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&ro.format, "format", "f", export.FormatPDF, "output format")
	f.StringVarP(&ro.out, "out", "o", "", "output file (default: <candidate>_report.<ext>)")
	f.StringVar(&ro.title, "title", "", "report title")
	f.StringVar(&ro.organisation, "organisation", "", "organisation shown in the PDF header")
	f.StringVar(&ro.candidate, "candidate", "", "candidate full name")
	f.StringVar(&ro.assessor, "assessor", "", "assessor name")
	f.StringVar(&ro.reference, "reference", "", "assessment reference")
	f.StringVar(&ro.date, "date", "", "assessment date, YYYY-MM-DD (default: today)")
	f.StringVar(&ro.barChart, "bar-chart", "", "PNG or JPEG image of section scores")
	f.StringVar(&ro.doughnutChart, "doughnut-chart", "", "PNG or JPEG image of the score distribution")
	return cmd
}

func runRender(cmd *cobra.Command, opts *rootOptions, ro *renderOptions, answersPath string) error {
	registry := export.Default(export.WithOrganisation(ro.organisation), export.WithAuthor(ro.assessor))
	rd, err := registry.Get(ro.format)
	if err != nil {
		return err
	}

	cat, err := opts.loadCatalog()
	if err != nil {
		return err
	}
	lib, err := opts.loadLibrary()
	if err != nil {
		return err
	}
	bag, err := loadAnswers(answersPath)
	if err != nil {
		return err
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if ro.date != "" {
		if date, err = time.Parse("2006-01-02", ro.date); err != nil {
			return errors.Wrap(err, "invalid --date")
		}
	}

	charts, err := readCharts(map[string]string{"bar": ro.barChart, "doughnut": ro.doughnutChart})
	if err != nil {
		return err
	}

	m := scoring.ScoreBag(cat, bag)
	engine, maxima := recommend.NewEngine(lib), scoring.SectionMaxima(cat)
	doc := report.Build(report.Input{
		Title: ro.title,
		Assessment: report.AssessmentInfo{
			Reference:      ro.reference,
			Status:         "Draft",
			CatalogVersion: cat.Version,
			CreatedAt:      date,
			AssessorName:   ro.assessor,
		},
		Candidate:       report.Candidate{FullName: ro.candidate},
		Score:           m,
		Recommendations: engine.Recommend(m, maxima),
		Tiers:           engine.Tiers(m, maxima),
		Catalog:         cat,
		Answers:         answers.Parse(bag),
		Charts:          charts,
	})

	data, err := rd.Render(doc)
	if err != nil {
		return err
	}
	out := ro.out
	if out == "" {
		out = export.FileName(doc, rd)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", out)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d bytes blake2b:%s\n", filepath.Base(out), len(data), export.Digest(data))
	return err
}

func readCharts(paths map[string]string) ([]report.Chart, error) {
	var charts []report.Chart
	for _, name := range []string{"bar", "doughnut"} {
		path := paths[name]
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s chart", name)
		}
		charts = append(charts, report.Chart{Name: name, Data: data})
	}
	return charts, nil
}
