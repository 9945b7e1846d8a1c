package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"cataid-backend/internal/answers"
	"cataid-backend/internal/catalog"
	"cataid-backend/internal/db/query"
	"cataid-backend/internal/model"
	"cataid-backend/internal/recommend"
	"cataid-backend/internal/repository"
	"cataid-backend/internal/scoring"
	"cataid-backend/internal/workflow"
	"cataid-backend/pkg/metrics"
	"cataid-backend/utilities"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

// ListFilter narrows assessment listings. Zero fields are ignored.
// StaffID matches assessments the staff member assesses or reviewed.
// From and To bound the creation time inclusively.
type ListFilter struct {
	Status        workflow.Status
	ExcludeStatus workflow.Status
	CandidateID   uint
	AssessorID    uint
	StaffID       uint
	CandidateName string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// AssessmentEvent is published on the event bus after a transition.
type AssessmentEvent struct {
	AssessmentID uint
	Reference    string
	Action       workflow.Action
	Status       workflow.Status
	Actor        workflow.Actor
}

type AssessmentService interface {
	CreateAssessment(actor workflow.Actor, candidateID, assessorID uint) (*model.Assessment, error)
	GetAssessment(id uint) (*model.Assessment, error)
	ListAssessments(f ListFilter) ([]model.Assessment, error)
	SaveAnswers(actor workflow.Actor, id uint, update answers.Bag) (*model.Assessment, error)
	Submit(actor workflow.Actor, id uint, update answers.Bag) (*model.Assessment, error)
	Review(actor workflow.Actor, id uint, decision string) (*model.Assessment, error)
	Assign(actor workflow.Actor, id, assessorID uint) (*model.Assessment, error)
	LeadEdit(actor workflow.Actor, id uint) (*model.Assessment, error)
	GetScore(id uint) (scoring.Model, error)
	GetRecommendations(id uint) ([]recommend.Block, error)
	CountByStatus() (map[workflow.Status]int64, error)
}

type assessmentService struct {
	assessmentRepo repository.AssessmentRepository
	candidateRepo  repository.CandidateRepository
	catalog        *catalog.Catalog
	engine         *recommend.Engine
	events         *utilities.EventBus
	now            func() time.Time
}

func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	candidateRepo repository.CandidateRepository,
	cat *catalog.Catalog,
	engine *recommend.Engine,
	events *utilities.EventBus,
) AssessmentService {
	if events == nil {
		events = utilities.GlobalEventBus
	}
	return &assessmentService{
		assessmentRepo: assessmentRepo,
		candidateRepo:  candidateRepo,
		catalog:        cat,
		engine:         engine,
		events:         events,
		now:            time.Now,
	}
}

// CreateAssessment starts a draft for a candidate. Assessors create their
// own drafts; a lead may create one on behalf of another assessor.
func (s *assessmentService) CreateAssessment(actor workflow.Actor, candidateID, assessorID uint) (*model.Assessment, error) {
	if candidateID == 0 {
		return nil, fmt.Errorf("%w: candidate id is required", ErrInvalidInput)
	}
	if assessorID == 0 {
		assessorID = actor.ID
	}
	if assessorID != actor.ID && !actor.IsLead() {
		return nil, fmt.Errorf("%w: only a lead can create assessments for others", workflow.ErrUnauthorized)
	}
	if _, err := s.candidateRepo.GetCandidateByID(candidateID); err != nil {
		return nil, fmt.Errorf("candidate %d: %w", candidateID, err)
	}

	assessment := &model.Assessment{
		Reference:      uuid.NewString(),
		CandidateID:    candidateID,
		AssessorID:     assessorID,
		Status:         workflow.Draft,
		CatalogVersion: s.catalog.Version,
		Answers:        datatypes.JSON("{}"),
	}
	if err := s.rescore(assessment, answers.Bag{}); err != nil {
		return nil, err
	}
	if err := s.assessmentRepo.CreateAssessment(assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}
	utilities.Info("assessment %s created for candidate %d by staff %d", assessment.Reference, candidateID, actor.ID)
	return assessment, nil
}

func (s *assessmentService) GetAssessment(id uint) (*model.Assessment, error) {
	return s.assessmentRepo.GetAssessmentByID(id)
}

func (s *assessmentService) ListAssessments(f ListFilter) ([]model.Assessment, error) {
	filter := query.NewFilter()
	if f.Status != "" {
		filter.Equal("assessments.status", string(f.Status))
	}
	if f.ExcludeStatus != "" {
		filter.NotEqual("assessments.status", string(f.ExcludeStatus))
	}
	if f.CandidateID != 0 {
		filter.Equal("assessments.candidate_id", f.CandidateID)
	}
	if f.AssessorID != 0 {
		filter.Equal("assessments.assessor_id", f.AssessorID)
	}
	if f.StaffID != 0 {
		filter.And().Open().
			Equal("assessments.assessor_id", f.StaffID).
			Or().Equal("assessments.lead_id", f.StaffID).
			Close()
	}
	if name := strings.TrimSpace(f.CandidateName); name != "" {
		filter.Like("candidates.full_name", name)
	}
	switch {
	case f.From != nil && f.To != nil:
		if f.To.Before(*f.From) {
			return nil, fmt.Errorf("%w: date range ends before it starts", ErrInvalidInput)
		}
		filter.Between("assessments.created_at", f.From.UTC(), f.To.UTC())
	case f.From != nil:
		filter.GreaterThan("assessments.created_at", f.From.UTC())
	case f.To != nil:
		filter.LessThan("assessments.created_at", f.To.UTC())
	}
	return s.assessmentRepo.ListAssessments(filter, f.Limit, f.Offset)
}

func (s *assessmentService) SaveAnswers(actor workflow.Actor, id uint, update answers.Bag) (*model.Assessment, error) {
	return s.transition(id, workflow.Request{Action: workflow.Save, Actor: actor}, update)
}

// Submit saves the update and submits in one step.
func (s *assessmentService) Submit(actor workflow.Actor, id uint, update answers.Bag) (*model.Assessment, error) {
	return s.transition(id, workflow.Request{Action: workflow.Submit, Actor: actor}, update)
}

func (s *assessmentService) Review(actor workflow.Actor, id uint, decision string) (*model.Assessment, error) {
	action, err := workflow.ParseDecision(decision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.transition(id, workflow.Request{Action: action, Actor: actor}, nil)
}

func (s *assessmentService) Assign(actor workflow.Actor, id, assessorID uint) (*model.Assessment, error) {
	return s.transition(id, workflow.Request{Action: workflow.Assign, Actor: actor, NewAssessorID: assessorID}, nil)
}

func (s *assessmentService) LeadEdit(actor workflow.Actor, id uint) (*model.Assessment, error) {
	return s.transition(id, workflow.Request{Action: workflow.LeadEdit, Actor: actor}, nil)
}

// transition applies a lifecycle request and, for edits, merges the answer
// update and recomputes the score snapshot before persisting. Nothing is
// written when the lifecycle refuses the request.
func (s *assessmentService) transition(id uint, req workflow.Request, update answers.Bag) (*model.Assessment, error) {
	if err := s.checkUpdate(update); err != nil {
		return nil, err
	}
	assessment, err := s.assessmentRepo.GetAssessmentByID(id)
	if err != nil {
		return nil, err
	}

	req.At = s.now()
	from := assessment.Status
	st := assessment.State()
	if err := workflow.Apply(&st, req); err != nil {
		reason := "invalid_transition"
		if workflow.IsUnauthorized(err) {
			reason = "unauthorized"
		}
		metrics.RecordTransitionDenied(string(req.Action), reason)
		utilities.Warn("assessment %d: staff %d %s refused: %v", id, req.Actor.ID, req.Action, err)
		return nil, err
	}

	if req.Action == workflow.Save || req.Action == workflow.Submit {
		bag := answers.ParseBag(assessment.Answers).Merge(update)
		if err := s.rescore(assessment, bag); err != nil {
			return nil, err
		}
	}
	if isReview(req.Action) {
		lead := req.Actor.ID
		assessment.LeadID = &lead
	}
	assessment.SetState(st)

	if err := s.assessmentRepo.UpdateAssessment(assessment, from); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.RecordTransitionDenied(string(req.Action), "conflict")
			return nil, fmt.Errorf("%w: assessment %d changed during %s", workflow.ErrInvalidTransition, id, req.Action)
		}
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}
	metrics.RecordTransition(string(req.Action), string(st.Status))
	utilities.Info("assessment %d: %s by staff %d, now %s", id, req.Action, req.Actor.ID, st.Status)

	event := AssessmentEvent{
		AssessmentID: assessment.ID,
		Reference:    assessment.Reference,
		Action:       req.Action,
		Status:       st.Status,
		Actor:        req.Actor,
	}
	switch {
	case req.Action == workflow.Submit:
		s.events.Publish(utilities.EventAssessmentSubmitted, event)
	case isReview(req.Action):
		s.events.Publish(utilities.EventAssessmentReviewed, event)
	}
	return assessment, nil
}

// checkUpdate rejects question keys that name no catalog question.
func (s *assessmentService) checkUpdate(update answers.Bag) error {
	for key := range update {
		id, ok := answers.QuestionKey(key)
		if !ok {
			continue
		}
		if _, _, known := s.catalog.Question(id); !known {
			return fmt.Errorf("%w: %s refers to unknown question %d", ErrInvalidInput, key, id)
		}
	}
	return nil
}

func (s *assessmentService) rescore(assessment *model.Assessment, bag answers.Bag) error {
	start := time.Now()
	m := scoring.ScoreBag(s.catalog, bag)
	metrics.RecordScoring(float64(time.Since(start).Microseconds()) / 1000)

	encodedScore, err := scoring.Encode(m)
	if err != nil {
		return err
	}
	encodedBag, err := bag.Encode()
	if err != nil {
		return err
	}
	assessment.Answers = datatypes.JSON(encodedBag)
	assessment.Score = datatypes.JSON(encodedScore)
	assessment.TotalScore = m.TotalScore
	assessment.MaxScore = m.MaxScore
	assessment.CatalogVersion = s.catalog.Version
	return nil
}

// GetScore returns the stored snapshot, recomputing it when the stored one
// is missing or unreadable.
func (s *assessmentService) GetScore(id uint) (scoring.Model, error) {
	assessment, err := s.assessmentRepo.GetAssessmentByID(id)
	if err != nil {
		return scoring.Model{}, err
	}
	return s.scoreOf(assessment), nil
}

func (s *assessmentService) scoreOf(assessment *model.Assessment) scoring.Model {
	return scoring.Restore(s.catalog, assessment.Score, assessment.Answers)
}

func (s *assessmentService) GetRecommendations(id uint) ([]recommend.Block, error) {
	assessment, err := s.assessmentRepo.GetAssessmentByID(id)
	if err != nil {
		return nil, err
	}
	m := s.scoreOf(assessment)
	maxima := scoring.SectionMaxima(s.catalog)
	set := s.engine.Recommend(m, maxima)
	tiers := s.engine.Tiers(m, maxima)
	for category := range set {
		metrics.RecordRecommendationTier(tiers[category].String())
	}
	return recommend.Ordered(set, s.catalog, tiers), nil
}

func (s *assessmentService) CountByStatus() (map[workflow.Status]int64, error) {
	return s.assessmentRepo.CountByStatus()
}

func isReview(a workflow.Action) bool {
	return a == workflow.Approve || a == workflow.Reject || a == workflow.SendBack
}
