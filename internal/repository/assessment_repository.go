package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cataid-backend/internal/db"
	"cataid-backend/internal/db/query"
	"cataid-backend/internal/model"
	"cataid-backend/internal/workflow"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a row no longer has the status an update was
// computed from.
var ErrConflict = errors.New("record changed concurrently")

type AssessmentRepository interface {
	CreateAssessment(assessment *model.Assessment) error
	GetAssessmentByID(id uint) (*model.Assessment, error)
	UpdateAssessment(assessment *model.Assessment, from workflow.Status) error
	ListAssessments(filter *query.Filter, limit, offset int) ([]model.Assessment, error)
	ListByCandidate(candidateID uint, statuses ...workflow.Status) ([]model.Assessment, error)
	CountByStatus() (map[workflow.Status]int64, error)
}

type assessmentRepository struct{}

func NewAssessmentRepository() AssessmentRepository {
	return &assessmentRepository{}
}

func (r *assessmentRepository) CreateAssessment(assessment *model.Assessment) error {
	return db.GetDB().Create(assessment).Error
}

func (r *assessmentRepository) GetAssessmentByID(id uint) (*model.Assessment, error) {
	var assessment model.Assessment
	err := db.GetDB().Preload("Candidate").First(&assessment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// UpdateAssessment saves the assessment if its stored status is still from.
// The row is locked for the check and the write.
func (r *assessmentRepository) UpdateAssessment(assessment *model.Assessment, from workflow.Status) error {
	return db.NewQueryExecutor(db.GetDB()).Transaction(func(tx *gorm.DB) error {
		var current model.Assessment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			First(&current, assessment.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if current.Status != from {
			return ErrConflict
		}
		return tx.Omit("Candidate").Save(assessment).Error
	})
}

// ListAssessments filters on assessments and candidates columns; filters
// must qualify column names with their table.
func (r *assessmentRepository) ListAssessments(filter *query.Filter, limit, offset int) ([]model.Assessment, error) {
	var assessments []model.Assessment
	qe := db.NewQueryExecutor(db.GetDB())
	base := db.GetDB().Model(&model.Assessment{}).
		Select("assessments.*").
		Joins("LEFT JOIN candidates ON candidates.id = assessments.candidate_id")
	tx := qe.Apply(base, filter).Order("assessments.created_at desc")
	if limit > 0 {
		tx = tx.Limit(limit).Offset(offset)
	}
	err := tx.Find(&assessments).Error
	return assessments, err
}

// ListByCandidate returns a candidate's assessments, oldest first.
func (r *assessmentRepository) ListByCandidate(candidateID uint, statuses ...workflow.Status) ([]model.Assessment, error) {
	f := query.NewFilter().Equal("candidate_id", candidateID)
	if len(statuses) > 0 {
		values := make([]interface{}, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		f.In("status", values...)
	}

	var assessments []model.Assessment
	qe := db.NewQueryExecutor(db.GetDB())
	err := qe.Apply(db.GetDB().Model(&model.Assessment{}), f).
		Order("created_at asc").Order("id asc").
		Find(&assessments).Error
	return assessments, err
}

func (r *assessmentRepository) CountByStatus() (map[workflow.Status]int64, error) {
	counts, err := db.NewQueryExecutor(db.GetDB()).GroupCount("assessments", "status", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[workflow.Status]int64, len(workflow.Statuses()))
	for _, s := range workflow.Statuses() {
		out[s] = counts[string(s)]
	}
	return out, nil
}
