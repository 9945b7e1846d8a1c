package service

import (
	"errors"
	"fmt"
	"time"

	"cataid-backend/internal/catalog"
	"cataid-backend/internal/export"
	"cataid-backend/internal/model"
	"cataid-backend/internal/report"
	"cataid-backend/internal/repository"
	"cataid-backend/internal/scoring"
	"cataid-backend/internal/workflow"
	"cataid-backend/pkg/metrics"
	"cataid-backend/utilities"
)

// ErrNotEnoughAssessments is returned when a candidate has fewer than two
// completed assessments to compare.
var ErrNotEnoughAssessments = errors.New("not enough completed assessments to compare")

// AssessmentRef identifies one completed assessment in a candidate's history.
type AssessmentRef struct {
	ID         uint      `json:"id"`
	Reference  string    `json:"reference"`
	Date       time.Time `json:"date"`
	Total      int       `json:"total"`
	Max        int       `json:"max"`
	Percentage float64   `json:"percentage"`
	Status     string    `json:"status"`
}

// Delta compares one score between the first and the latest assessment.
type Delta struct {
	Name       string `json:"name"`
	First      int    `json:"first"`
	Latest     int    `json:"latest"`
	Difference int    `json:"difference"`
}

// SectionProgress is the section delta with its question deltas.
type SectionProgress struct {
	Delta
	Questions []Delta `json:"questions"`
}

// Progress compares a candidate's first and latest completed assessments.
// History lists every completed assessment, oldest first.
type Progress struct {
	CandidateID uint              `json:"candidate_id"`
	History     []AssessmentRef   `json:"history"`
	First       AssessmentRef     `json:"first"`
	Latest      AssessmentRef     `json:"latest"`
	Difference  int               `json:"difference"`
	Sections    []SectionProgress `json:"sections"`
}

type ProgressService interface {
	Compare(candidateID uint) (*Progress, error)
	Export(candidateID uint, format string, charts []report.Chart) (*Export, error)
}

type progressService struct {
	assessmentRepo repository.AssessmentRepository
	candidateRepo  repository.CandidateRepository
	catalog        *catalog.Catalog
	registry       *export.Registry
	events         *utilities.EventBus
}

func NewProgressService(
	assessmentRepo repository.AssessmentRepository,
	candidateRepo repository.CandidateRepository,
	cat *catalog.Catalog,
	registry *export.Registry,
	events *utilities.EventBus,
) ProgressService {
	if events == nil {
		events = utilities.GlobalEventBus
	}
	return &progressService{
		assessmentRepo: assessmentRepo,
		candidateRepo:  candidateRepo,
		catalog:        cat,
		registry:       registry,
		events:         events,
	}
}

// Compare reads the score snapshots of the candidate's submitted or approved
// assessments and reports the differences between the oldest and the newest,
// per section and per question.
func (s *progressService) Compare(candidateID uint) (*Progress, error) {
	list, err := s.assessmentRepo.ListByCandidate(candidateID, workflow.Submitted, workflow.Approved)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessments for candidate %d: %w", candidateID, err)
	}
	if len(list) < 2 {
		return nil, ErrNotEnoughAssessments
	}

	p := &Progress{CandidateID: candidateID}
	models := make([]scoring.Model, len(list))
	for i := range list {
		models[i] = scoring.Restore(s.catalog, list[i].Score, list[i].Answers)
		p.History = append(p.History, ref(list[i], models[i]))
	}

	fm, lm := models[0], models[len(models)-1]
	p.First, p.Latest = p.History[0], p.History[len(p.History)-1]
	p.Difference = lm.TotalScore - fm.TotalScore

	for _, sec := range s.catalog.Sections {
		f, _ := fm.SectionScore(sec.Category)
		l, _ := lm.SectionScore(sec.Category)
		sp := SectionProgress{Delta: delta(sec.Category, f, l)}

		seen := make(map[string]bool, len(sec.Questions))
		for _, q := range sec.Questions {
			if seen[q.Text] {
				continue
			}
			seen[q.Text] = true
			fq := fm.SectionQuestionScores[sec.Category][q.Text]
			lq := lm.SectionQuestionScores[sec.Category][q.Text]
			sp.Questions = append(sp.Questions, delta(q.Text, fq, lq))
		}
		p.Sections = append(p.Sections, sp)
	}
	return p, nil
}

// Export renders the progress report of a candidate.
func (s *progressService) Export(candidateID uint, format string, charts []report.Chart) (*Export, error) {
	rd, err := s.registry.GetProgress(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	candidate, err := s.candidateRepo.GetCandidateByID(candidateID)
	if err != nil {
		return nil, err
	}
	p, err := s.Compare(candidateID)
	if err != nil {
		return nil, err
	}
	doc := report.BuildProgress(progressDocument(p, candidateInfo(candidate), charts))

	start := time.Now()
	data, err := rd.RenderProgress(doc)
	metrics.RecordExport("progress_"+rd.Format(), len(data), float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		utilities.Error("candidate %d: progress %s export failed: %v", candidateID, rd.Format(), err)
		return nil, fmt.Errorf("failed to render %s: %w", rd.Format(), err)
	}

	out := &Export{
		Data:        data,
		ContentType: rd.ContentType(),
		FileName:    export.ProgressFileName(doc, rd),
		Digest:      export.Digest(data),
	}
	s.events.Publish(utilities.EventReportExported, map[string]interface{}{
		"candidate_id": candidateID,
		"format":       rd.Format(),
		"digest":       out.Digest,
	})
	return out, nil
}

func progressDocument(p *Progress, candidate report.Candidate, charts []report.Chart) report.ProgressDocument {
	doc := report.ProgressDocument{
		Candidate:  candidate,
		First:      historyRow(p.First),
		Latest:     historyRow(p.Latest),
		Difference: p.Difference,
		Charts:     charts,
	}
	for _, h := range p.History {
		doc.History = append(doc.History, historyRow(h))
	}
	for _, sp := range p.Sections {
		ps := report.ProgressSection{ProgressDelta: report.ProgressDelta(sp.Delta)}
		for _, q := range sp.Questions {
			ps.Questions = append(ps.Questions, report.ProgressDelta(q))
		}
		doc.Sections = append(doc.Sections, ps)
	}
	return doc
}

func historyRow(r AssessmentRef) report.HistoryRow {
	return report.HistoryRow{
		Reference:  r.Reference,
		Date:       r.Date,
		Total:      r.Total,
		Max:        r.Max,
		Percentage: r.Percentage,
		Status:     r.Status,
	}
}

func ref(a model.Assessment, m scoring.Model) AssessmentRef {
	date := a.CreatedAt
	if a.SubmittedAt != nil {
		date = *a.SubmittedAt
	}
	return AssessmentRef{
		ID:         a.ID,
		Reference:  a.Reference,
		Date:       date.UTC(),
		Total:      m.TotalScore,
		Max:        m.MaxScore,
		Percentage: m.Percentage(),
		Status:     a.Status.Label(),
	}
}

func delta(name string, first, latest int) Delta {
	return Delta{Name: name, First: first, Latest: latest, Difference: latest - first}
}
