// Package report assembles the canonical document that every export format
// renders. Building a document never recomputes scores or recommendations.
package report

import (
	"time"

	"cataid-backend/internal/recommend"
	"cataid-backend/internal/scoring"
)

// Placeholder is shown for missing text values.
const Placeholder = "-"

// DefaultTitle is used when the caller does not supply one.
const DefaultTitle = "Comprehensive Vocational Assessment Report"

// Candidate identifies the assessed person.
type Candidate struct {
	FullName        string
	Gender          string
	DateOfBirth     *time.Time
	DisabilityType  string
	Education       string
	Languages       string
	Address         string
	ContactNumber   string
	ResidentialArea string
}

// AssessmentInfo is the metadata of the assessment being reported.
type AssessmentInfo struct {
	Reference      string
	Status         string
	CatalogVersion string
	CreatedAt      time.Time
	SubmittedAt    *time.Time
	ReviewedAt     *time.Time
	AssessorName   string
	LeadName       string
}

// Chart is an optional raster image embedded as-is.
type Chart struct {
	Name    string
	Caption string
	Data    []byte
}

// QuestionRow is one line of a section table.
type QuestionRow struct {
	ID      int
	Text    string
	Answer  string
	Score   string
	Comment string
}

// SectionBreakdown is a section with its score and question rows.
type SectionBreakdown struct {
	Category   string
	Score      int
	MaxScore   int
	Percentage float64
	Tier       string
	Rows       []QuestionRow
}

// Signatures names the people signing the report.
type Signatures struct {
	Assessor string
	Lead     string
}

// Document is the read-only aggregate handed to renderers.
type Document struct {
	Title           string
	Candidate       Candidate
	Assessment      AssessmentInfo
	Score           scoring.Model
	Percentage      float64
	Recommendations []recommend.Block
	Sections        []SectionBreakdown
	SummaryComments string
	Evidence        []string
	Charts          []Chart
	Signatures      Signatures
	// GeneratedAt is derived from the assessment timestamps so identical
	// inputs render identical bytes.
	GeneratedAt time.Time
}

// HasRecommendations reports whether any section needs support.
func (d Document) HasRecommendations() bool {
	return len(d.Recommendations) > 0
}
