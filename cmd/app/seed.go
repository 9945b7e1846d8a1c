package main

import (
	"errors"
	"os"

	"cataid-backend/internal/model"
	"cataid-backend/internal/repository"
	"cataid-backend/internal/service"
	"cataid-backend/internal/workflow"
	"cataid-backend/utilities"
)

// Bootstrap lead account. Leads register every other staff member, so an
// empty database needs one to start with.
const (
	envLeadName     = "CATAID_LEAD_NAME"
	envLeadEmail    = "CATAID_LEAD_EMAIL"
	envLeadPassword = "CATAID_LEAD_PASSWORD"
)

func seedLead(authService service.AuthService, staffRepo repository.StaffRepository) {
	email, password := os.Getenv(envLeadEmail), os.Getenv(envLeadPassword)
	if email == "" || password == "" {
		return
	}
	if _, err := staffRepo.GetStaffByEmail(email); err == nil {
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		utilities.Error("failed to check for seed lead %s: %v", email, err)
		return
	}

	name := os.Getenv(envLeadName)
	if name == "" {
		name = "Assessment Lead"
	}
	lead := &model.Staff{Name: name, Email: email, Role: workflow.RoleLead}
	if err := authService.Register(lead, password); err != nil {
		utilities.Error("failed to seed lead %s: %v", email, err)
		return
	}
	utilities.Info("seeded lead account %s", lead.Email)
}
