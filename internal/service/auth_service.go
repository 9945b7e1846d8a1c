package service

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"cataid-backend/internal/model"
	"cataid-backend/internal/repository"
	"cataid-backend/internal/workflow"
	"cataid-backend/utilities"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Tokens is the login response.
type Tokens struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	Staff        *model.Staff `json:"staff,omitempty"`
}

type AuthService interface {
	Register(staff *model.Staff, password string) error
	Login(email, password string) (*Tokens, error)
	Refresh(refreshToken string) (*Tokens, error)
}

type authService struct {
	staffRepo repository.StaffRepository
}

func NewAuthService(staffRepo repository.StaffRepository) AuthService {
	return &authService{staffRepo: staffRepo}
}

func (s *authService) Register(staff *model.Staff, password string) error {
	if strings.TrimSpace(staff.Email) == "" || strings.TrimSpace(staff.Name) == "" {
		return fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	switch staff.Role {
	case "":
		staff.Role = workflow.RoleAssessor
	case workflow.RoleAssessor, workflow.RoleLead:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, staff.Role)
	}

	if existing, err := s.staffRepo.GetStaffByEmail(staff.Email); err == nil && existing != nil {
		return ErrEmailInUse
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	staff.PasswordHash = string(hash)

	if err := s.staffRepo.CreateStaff(staff); err != nil {
		return fmt.Errorf("failed to store staff member: %w", err)
	}
	utilities.Info("registered %s %s", staff.Role, staff.Email)
	return nil
}

func (s *authService) Login(email, password string) (*Tokens, error) {
	staff, err := s.staffRepo.GetStaffByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, refresh, err := utilities.GenerateTokens(staff.Actor())
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh, Staff: staff}, nil
}

func (s *authService) Refresh(refreshToken string) (*Tokens, error) {
	access, refresh, err := utilities.RefreshTokens(refreshToken)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}
