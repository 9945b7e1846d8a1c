package scoring

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"

	"cataid-backend/internal/catalog"
)

// Model is the normalized score snapshot for one submission. It is derived
// from a catalog and a sheet and is never edited by hand.
type Model struct {
	SectionScores         map[string]int            `json:"sectionScores"`
	SectionQuestionScores map[string]map[string]int `json:"sectionQuestionScores"`
	TotalScore            int                       `json:"totalScore"`
	MaxScore              int                       `json:"maxScore"`
}

// Empty returns a zero model with initialized maps.
func Empty() Model {
	return Model{
		SectionScores:         map[string]int{},
		SectionQuestionScores: map[string]map[string]int{},
	}
}

// Percentage is TotalScore/MaxScore*100 rounded to two decimals, or 0 when
// the model has no denominator.
func (m Model) Percentage() float64 {
	if m.MaxScore <= 0 {
		return 0
	}
	return math.Round(float64(m.TotalScore)/float64(m.MaxScore)*10000) / 100
}

// SectionScore looks a section up ignoring case.
func (m Model) SectionScore(category string) (int, bool) {
	if v, ok := m.SectionScores[category]; ok {
		return v, true
	}
	for k, v := range m.SectionScores {
		if strings.EqualFold(k, category) {
			return v, true
		}
	}
	return 0, false
}

// Encode serializes the model in its persisted form.
func Encode(m Model) ([]byte, error) {
	m = m.normalized()
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode score model")
	}
	return data, nil
}

// Decode reads a persisted model. Missing or malformed data yields an empty
// model instead of an error.
func Decode(data []byte) Model {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Empty()
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return Empty()
	}
	return m.normalized()
}

func (m Model) normalized() Model {
	if m.SectionScores == nil {
		m.SectionScores = map[string]int{}
	}
	if m.SectionQuestionScores == nil {
		m.SectionQuestionScores = map[string]map[string]int{}
	}
	return m
}

// Validate checks the model invariants against the catalog it was scored with.
func (m Model) Validate(cat *catalog.Catalog) error {
	sum := 0
	for _, v := range m.SectionScores {
		sum += v
	}
	if sum != m.TotalScore {
		return errors.Errorf("total score %d does not match section sum %d", m.TotalScore, sum)
	}
	if cat == nil {
		return nil
	}
	if want := cat.MaxScore(); m.MaxScore != want {
		return errors.Errorf("max score %d does not match catalog max %d", m.MaxScore, want)
	}
	for name := range m.SectionScores {
		if _, ok := cat.Section(name); !ok {
			return errors.Errorf("section %q is not in the catalog", name)
		}
	}
	return nil
}
