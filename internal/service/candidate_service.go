package service

import (
	"fmt"
	"strings"

	"cataid-backend/internal/model"
	"cataid-backend/internal/repository"
)

type CandidateService interface {
	CreateCandidate(candidate *model.Candidate) error
	GetCandidate(id uint) (*model.Candidate, error)
}

type candidateService struct {
	candidateRepo repository.CandidateRepository
}

func NewCandidateService(candidateRepo repository.CandidateRepository) CandidateService {
	return &candidateService{candidateRepo: candidateRepo}
}

func (s *candidateService) CreateCandidate(candidate *model.Candidate) error {
	candidate.FullName = strings.TrimSpace(candidate.FullName)
	if candidate.FullName == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}
	candidate.ID = 0
	return s.candidateRepo.CreateCandidate(candidate)
}

func (s *candidateService) GetCandidate(id uint) (*model.Candidate, error) {
	return s.candidateRepo.GetCandidateByID(id)
}
