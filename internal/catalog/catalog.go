// Package catalog holds the versioned question catalog and the
// recommendation library. Both are loaded once at startup and are read-only
// afterwards; category names and question ids are the join keys used by
// scoring, recommendations and reports.
package catalog

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMaxScore is the per-question maximum used when a section omits it.
const DefaultMaxScore = 3

// ErrInvalidCatalog marks a catalog that cannot be used for scoring.
var ErrInvalidCatalog = errors.New("invalid question catalog")

// Question is a single catalog question.
type Question struct {
	ID          int      `json:"id"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	Correct     string   `json:"correct,omitempty"`
	ScoreWeight int      `json:"scoreWeight"`
}

// Section groups questions under a stable category name.
type Section struct {
	Category  string     `json:"category"`
	Questions []Question `json:"questions"`
	// MaxScore is the maximum score per question.
	MaxScore int `json:"maxScore"`
}

// MaxTotal is the highest score the section can reach.
func (s Section) MaxTotal() int {
	return len(s.Questions) * s.MaxScore
}

// Catalog is an ordered, immutable set of sections.
type Catalog struct {
	Version  string    `json:"version"`
	Sections []Section `json:"sections"`

	byID map[int]ref
}

type ref struct {
	section  int
	question int
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read question catalog: %s", path)
	}

	cat, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load question catalog: %s", path)
	}
	return cat, nil
}

// Parse decodes a catalog document. Both the wrapped form
// {"version": ..., "sections": [...]} and a bare array of sections are accepted.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &cat.Sections); err != nil {
			return nil, errors.Wrap(err, "failed to parse catalog sections")
		}
	} else if err := json.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog")
	}

	return New(cat.Version, cat.Sections)
}

// New builds a catalog from sections, applying defaults and validating the
// join keys. The sections are copied; later changes to the argument do not
// leak into the catalog.
func New(version string, sections []Section) (*Catalog, error) {
	if len(sections) == 0 {
		return nil, errors.Wrap(ErrInvalidCatalog, "no sections")
	}

	cat := &Catalog{
		Version:  version,
		Sections: make([]Section, len(sections)),
		byID:     make(map[int]ref),
	}

	seen := make(map[string]bool, len(sections))
	for i, sec := range sections {
		name := strings.TrimSpace(sec.Category)
		if name == "" {
			return nil, errors.Wrapf(ErrInvalidCatalog, "section %d has no category", i)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, errors.Wrapf(ErrInvalidCatalog, "duplicate category %q", name)
		}
		seen[key] = true

		if sec.MaxScore < 0 {
			return nil, errors.Wrapf(ErrInvalidCatalog, "section %q has negative max score", name)
		}
		if sec.MaxScore == 0 {
			sec.MaxScore = DefaultMaxScore
		}
		sec.Category = name

		qs := make([]Question, len(sec.Questions))
		for j, q := range sec.Questions {
			if q.ID <= 0 {
				return nil, errors.Wrapf(ErrInvalidCatalog, "section %q question %d has invalid id %d", name, j, q.ID)
			}
			if _, dup := cat.byID[q.ID]; dup {
				return nil, errors.Wrapf(ErrInvalidCatalog, "duplicate question id %d", q.ID)
			}
			q.Options = append([]string(nil), q.Options...)
			qs[j] = q
			cat.byID[q.ID] = ref{section: i, question: j}
		}
		sec.Questions = qs
		cat.Sections[i] = sec
	}

	return cat, nil
}

// Question looks up a question and its section by id.
func (c *Catalog) Question(id int) (Question, Section, bool) {
	r, ok := c.byID[id]
	if !ok {
		return Question{}, Section{}, false
	}
	sec := c.Sections[r.section]
	return sec.Questions[r.question], sec, true
}

// Section finds a section by category, ignoring case.
func (c *Catalog) Section(category string) (Section, bool) {
	for _, s := range c.Sections {
		if strings.EqualFold(s.Category, strings.TrimSpace(category)) {
			return s, true
		}
	}
	return Section{}, false
}

// MaxScore is the catalog-wide denominator. It depends only on the catalog
// shape, never on submitted answers.
func (c *Catalog) MaxScore() int {
	total := 0
	for _, s := range c.Sections {
		total += s.MaxTotal()
	}
	return total
}

// QuestionCount returns the number of questions across all sections.
func (c *Catalog) QuestionCount() int {
	return len(c.byID)
}
