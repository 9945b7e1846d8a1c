package service

import (
	"fmt"
	"strings"
	"time"

	"cataid-backend/internal/answers"
	"cataid-backend/internal/catalog"
	"cataid-backend/internal/export"
	"cataid-backend/internal/model"
	"cataid-backend/internal/recommend"
	"cataid-backend/internal/report"
	"cataid-backend/internal/repository"
	"cataid-backend/internal/scoring"
	"cataid-backend/pkg/metrics"
	"cataid-backend/utilities"
)

// Export is a rendered report ready for download.
type Export struct {
	Data        []byte
	ContentType string
	FileName    string
	Digest      string
}

type ReportService interface {
	BuildDocument(id uint, charts []report.Chart) (report.Document, error)
	Export(id uint, format string, charts []report.Chart) (*Export, error)
	Formats() []string
}

type reportService struct {
	assessmentRepo repository.AssessmentRepository
	staffRepo      repository.StaffRepository
	catalog        *catalog.Catalog
	engine         *recommend.Engine
	registry       *export.Registry
	title          string
	events         *utilities.EventBus
}

func NewReportService(
	assessmentRepo repository.AssessmentRepository,
	staffRepo repository.StaffRepository,
	cat *catalog.Catalog,
	engine *recommend.Engine,
	registry *export.Registry,
	title string,
	events *utilities.EventBus,
) ReportService {
	if events == nil {
		events = utilities.GlobalEventBus
	}
	return &reportService{
		assessmentRepo: assessmentRepo,
		staffRepo:      staffRepo,
		catalog:        cat,
		engine:         engine,
		registry:       registry,
		title:          title,
		events:         events,
	}
}

func (s *reportService) Formats() []string {
	return s.registry.Formats()
}

// BuildDocument assembles the report for an assessment. Recommendations are
// derived from the stored score snapshot (see scoring.Restore), never from
// the live answers.
func (s *reportService) BuildDocument(id uint, charts []report.Chart) (report.Document, error) {
	a, err := s.assessmentRepo.GetAssessmentByID(id)
	if err != nil {
		return report.Document{}, err
	}

	maxima := scoring.SectionMaxima(s.catalog)
	m := scoring.Restore(s.catalog, a.Score, a.Answers)

	return report.Build(report.Input{
		Title:           s.title,
		Assessment:      s.assessmentInfo(a),
		Candidate:       candidateInfo(a.Candidate),
		Score:           m,
		Recommendations: s.engine.Recommend(m, maxima),
		Tiers:           s.engine.Tiers(m, maxima),
		Catalog:         s.catalog,
		Answers:         answers.Parse(answers.ParseBag(a.Answers)),
		Charts:          charts,
	}), nil
}

func (s *reportService) Export(id uint, format string, charts []report.Chart) (*Export, error) {
	rd, err := s.registry.Get(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	doc, err := s.BuildDocument(id, charts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := rd.Render(doc)
	metrics.RecordExport(rd.Format(), len(data), float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		utilities.Error("assessment %d: %s export failed: %v", id, rd.Format(), err)
		return nil, fmt.Errorf("failed to render %s: %w", rd.Format(), err)
	}

	out := &Export{
		Data:        data,
		ContentType: rd.ContentType(),
		FileName:    export.FileName(doc, rd),
		Digest:      export.Digest(data),
	}
	s.events.Publish(utilities.EventReportExported, map[string]interface{}{
		"assessment_id": id,
		"format":        rd.Format(),
		"digest":        out.Digest,
	})
	return out, nil
}

func (s *reportService) assessmentInfo(a *model.Assessment) report.AssessmentInfo {
	info := report.AssessmentInfo{
		Reference:      a.Reference,
		Status:         a.Status.Label(),
		CatalogVersion: a.CatalogVersion,
		CreatedAt:      a.CreatedAt,
		SubmittedAt:    a.SubmittedAt,
		ReviewedAt:     a.ReviewedAt,
		AssessorName:   s.staffName(a.AssessorID),
	}
	if a.LeadID != nil {
		info.LeadName = s.staffName(*a.LeadID)
	}
	return info
}

func (s *reportService) staffName(id uint) string {
	if id == 0 || s.staffRepo == nil {
		return ""
	}
	staff, err := s.staffRepo.GetStaffByID(id)
	if err != nil {
		utilities.Warn("staff %d not found for report: %v", id, err)
		return ""
	}
	return staff.Name
}

func candidateInfo(c *model.Candidate) report.Candidate {
	if c == nil {
		return report.Candidate{}
	}
	return report.Candidate{
		FullName:        strings.TrimSpace(c.FullName),
		Gender:          c.Gender,
		DateOfBirth:     c.DateOfBirth,
		DisabilityType:  c.DisabilityType,
		Education:       c.Education,
		Languages:       c.Languages,
		Address:         c.Address,
		ContactNumber:   c.ContactNumber,
		ResidentialArea: c.ResidentialArea,
	}
}
