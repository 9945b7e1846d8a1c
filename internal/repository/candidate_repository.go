package repository

import (
	"errors"

	"gorm.io/gorm"

	"cataid-backend/internal/db"
	"cataid-backend/internal/model"
)

type CandidateRepository interface {
	CreateCandidate(candidate *model.Candidate) error
	GetCandidateByID(id uint) (*model.Candidate, error)
}

type candidateRepository struct{}

func NewCandidateRepository() CandidateRepository {
	return &candidateRepository{}
}

func (r *candidateRepository) CreateCandidate(candidate *model.Candidate) error {
	return db.GetDB().Create(candidate).Error
}

func (r *candidateRepository) GetCandidateByID(id uint) (*model.Candidate, error) {
	var candidate model.Candidate
	err := db.GetDB().First(&candidate, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}
