// Package scoring computes the score model of a submission from the question
// catalog. Scoring is a pure function of its inputs and is recomputed in
// full on every pass.
package scoring

import (
	"cataid-backend/internal/answers"
	"cataid-backend/internal/catalog"
)

// Score walks the catalog in order and accumulates the submitted scores.
// Questions without a usable score count as zero. Values above the section's
// per-question maximum are passed through unchanged; MaxScore is derived from
// the catalog shape alone so partially completed sheets keep a stable
// denominator.
//
// Per-question scores are keyed by question text so stored breakdowns stay
// readable if ids are renumbered. Two questions with identical text in one
// section share a key and their scores are summed.
func Score(cat *catalog.Catalog, sheet answers.Sheet) Model {
	m := Empty()
	if cat == nil {
		return m
	}

	for _, sec := range cat.Sections {
		questions := make(map[string]int, len(sec.Questions))
		sectionTotal := 0
		for _, q := range sec.Questions {
			v := sheet.Entry(q.ID).Score
			if v < 0 {
				v = 0
			}
			questions[q.Text] += v
			sectionTotal += v
		}
		m.SectionScores[sec.Category] = sectionTotal
		m.SectionQuestionScores[sec.Category] = questions
		m.TotalScore += sectionTotal
		m.MaxScore += sec.MaxTotal()
	}
	return m
}

// ScoreBag is Score over a raw answer bag.
func ScoreBag(cat *catalog.Catalog, bag answers.Bag) Model {
	return Score(cat, answers.Parse(bag))
}

// Restore returns the stored score snapshot. A snapshot that is missing or
// unreadable (no maximum) is recomputed from the stored answer bag, so every
// reader of persisted assessments sees the same score.
func Restore(cat *catalog.Catalog, scoreJSON, answersJSON []byte) Model {
	m := Decode(scoreJSON)
	if m.MaxScore == 0 && cat != nil {
		m = ScoreBag(cat, answers.ParseBag(answersJSON))
	}
	return m
}

// SectionMaxima maps each category to its maximum attainable score.
func SectionMaxima(cat *catalog.Catalog) map[string]int {
	out := make(map[string]int)
	if cat == nil {
		return out
	}
	for _, sec := range cat.Sections {
		out[sec.Category] = sec.MaxTotal()
	}
	return out
}
