package model

import (
	"time"

	"gorm.io/datatypes"

	"cataid-backend/internal/workflow"
)

type Staff struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	Name         string        `json:"name" gorm:"not null"`
	Email        string        `json:"email" gorm:"not null;uniqueIndex"`
	PasswordHash string        `json:"-"`
	Role         workflow.Role `json:"role" gorm:"type:varchar(16);not null;default:'assessor'"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Actor is the workflow view of a staff member.
func (s Staff) Actor() workflow.Actor {
	return workflow.Actor{ID: s.ID, Name: s.Name, Role: s.Role}
}

type Candidate struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	FullName        string     `json:"full_name" gorm:"not null"`
	Gender          string     `json:"gender"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	DisabilityType  string     `json:"disability_type"`
	Education       string     `json:"education"`
	Languages       string     `json:"languages"`
	Address         string     `json:"address"`
	ContactNumber   string     `json:"contact_number"`
	ResidentialArea string     `json:"residential_area"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Assessment is one vocational assessment of a candidate. Answers holds the
// raw answer bag and Score the score snapshot recomputed on every save.
type Assessment struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Reference      string          `json:"reference" gorm:"not null;uniqueIndex"`
	CandidateID    uint            `json:"candidate_id" gorm:"not null;index"`
	Candidate      *Candidate      `json:"candidate,omitempty" gorm:"foreignKey:CandidateID"`
	AssessorID     uint            `json:"assessor_id" gorm:"index"`
	LeadID         *uint           `json:"lead_id"`
	Status         workflow.Status `json:"status" gorm:"type:varchar(16);not null;default:'Draft';index"`
	CatalogVersion string          `json:"catalog_version"`
	Answers        datatypes.JSON  `json:"answers" gorm:"type:jsonb"`
	Score          datatypes.JSON  `json:"score" gorm:"type:jsonb"`
	TotalScore     int             `json:"total_score"`
	MaxScore       int             `json:"max_score"`
	SubmittedAt    *time.Time      `json:"submitted_at"`
	ReviewedAt     *time.Time      `json:"reviewed_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// State is the lifecycle part of the assessment.
func (a *Assessment) State() workflow.State {
	return workflow.State{
		Status:      a.Status,
		AssessorID:  a.AssessorID,
		SubmittedAt: a.SubmittedAt,
		ReviewedAt:  a.ReviewedAt,
	}
}

// SetState copies a lifecycle state back onto the assessment.
func (a *Assessment) SetState(st workflow.State) {
	a.Status = st.Status
	a.AssessorID = st.AssessorID
	a.SubmittedAt = st.SubmittedAt
	a.ReviewedAt = st.ReviewedAt
}
