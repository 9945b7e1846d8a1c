package report

import (
	"math"
	"strconv"
	"strings"
	"time"

	"cataid-backend/internal/answers"
	"cataid-backend/internal/catalog"
	"cataid-backend/internal/recommend"
	"cataid-backend/internal/scoring"
)

// Input carries everything a document is built from.
type Input struct {
	Title           string
	Assessment      AssessmentInfo
	Candidate       Candidate
	Score           scoring.Model
	Recommendations recommend.Set
	Tiers           map[string]recommend.Tier // from recommend.Engine.Tiers
	Catalog         *catalog.Catalog
	Answers         answers.Sheet
	Charts          []Chart
}

// Build aggregates the input into a Document. It tolerates partial data:
// a nil catalog yields no sections, missing text renders as Placeholder, and
// charts without bytes are dropped.
func Build(in Input) Document {
	score := in.Score
	if score.SectionScores == nil || score.SectionQuestionScores == nil {
		score = mergeEmpty(score)
	}

	doc := Document{
		Title:           orDefault(in.Title, DefaultTitle),
		Candidate:       normalizeCandidate(in.Candidate),
		Assessment:      normalizeInfo(in.Assessment),
		Score:           score,
		Percentage:      score.Percentage(),
		SummaryComments: orDefault(in.Answers.Summary, Placeholder),
		Signatures: Signatures{
			Assessor: orDefault(in.Assessment.AssessorName, Placeholder),
			Lead:     orDefault(in.Assessment.LeadName, Placeholder),
		},
		GeneratedAt: generatedAt(in.Assessment),
	}

	if in.Catalog != nil {
		for _, sec := range in.Catalog.Sections {
			b := buildSection(sec, score, in.Answers)
			b.Tier = recommend.TierOf(in.Tiers, sec.Category).String()
			doc.Sections = append(doc.Sections, b)
		}
	}
	doc.Recommendations = recommend.Ordered(in.Recommendations, in.Catalog, in.Tiers)

	for _, ev := range in.Answers.Evidence {
		if name := strings.TrimSpace(ev.FileName); name != "" {
			doc.Evidence = append(doc.Evidence, name)
		}
	}

	for _, ch := range in.Charts {
		if len(ch.Data) == 0 {
			continue
		}
		doc.Charts = append(doc.Charts, ch)
	}
	return doc
}

// RawInput is Input before the persisted answer bag and score snapshot have
// been decoded.
type RawInput struct {
	Title           string
	Assessment      AssessmentInfo
	Candidate       Candidate
	ScoreJSON       []byte
	AnswersJSON     []byte
	Recommendations recommend.Set
	Tiers           map[string]recommend.Tier
	Catalog         *catalog.Catalog
	Charts          []Chart
}

// BuildFromStored decodes persisted state and builds the document. The score
// follows scoring.Restore; a malformed answer bag degrades to empty.
func BuildFromStored(in RawInput) Document {
	return Build(Input{
		Title:           in.Title,
		Assessment:      in.Assessment,
		Candidate:       in.Candidate,
		Score:           scoring.Restore(in.Catalog, in.ScoreJSON, in.AnswersJSON),
		Recommendations: in.Recommendations,
		Tiers:           in.Tiers,
		Catalog:         in.Catalog,
		Answers:         answers.Parse(answers.ParseBag(in.AnswersJSON)),
		Charts:          in.Charts,
	})
}

func buildSection(sec catalog.Section, score scoring.Model, sheet answers.Sheet) SectionBreakdown {
	b := SectionBreakdown{
		Category: sec.Category,
		MaxScore: sec.MaxTotal(),
	}
	b.Score, _ = score.SectionScore(sec.Category)
	if b.MaxScore > 0 {
		b.Percentage = math.Round(float64(b.Score)/float64(b.MaxScore)*10000) / 100
	}

	for _, q := range sec.Questions {
		e := sheet.Entry(q.ID)
		row := QuestionRow{
			ID:      q.ID,
			Text:    orDefault(q.Text, Placeholder),
			Answer:  orDefault(e.Answer, Placeholder),
			Comment: orDefault(e.Comment, Placeholder),
			Score:   "0",
		}
		if e.Scored {
			row.Score = strconv.Itoa(e.Score)
		}
		b.Rows = append(b.Rows, row)
	}
	return b
}

func mergeEmpty(m scoring.Model) scoring.Model {
	e := scoring.Empty()
	for k, v := range m.SectionScores {
		e.SectionScores[k] = v
	}
	for k, v := range m.SectionQuestionScores {
		e.SectionQuestionScores[k] = v
	}
	e.TotalScore = m.TotalScore
	e.MaxScore = m.MaxScore
	return e
}

func normalizeCandidate(c Candidate) Candidate {
	c.FullName = orDefault(c.FullName, "Unknown")
	c.Gender = orDefault(c.Gender, Placeholder)
	c.DisabilityType = orDefault(c.DisabilityType, Placeholder)
	c.Education = orDefault(c.Education, Placeholder)
	c.Languages = orDefault(c.Languages, Placeholder)
	c.Address = orDefault(c.Address, Placeholder)
	c.ContactNumber = orDefault(c.ContactNumber, Placeholder)
	c.ResidentialArea = orDefault(c.ResidentialArea, Placeholder)
	return c
}

func normalizeInfo(a AssessmentInfo) AssessmentInfo {
	a.Status = orDefault(a.Status, Placeholder)
	a.Reference = orDefault(a.Reference, Placeholder)
	a.AssessorName = orDefault(a.AssessorName, Placeholder)
	a.LeadName = orDefault(a.LeadName, Placeholder)
	return a
}

func generatedAt(a AssessmentInfo) time.Time {
	switch {
	case a.ReviewedAt != nil:
		return a.ReviewedAt.UTC()
	case a.SubmittedAt != nil:
		return a.SubmittedAt.UTC()
	case !a.CreatedAt.IsZero():
		return a.CreatedAt.UTC()
	default:
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

// FormatDate renders an optional timestamp the way the reports show dates.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return Placeholder
	}
	return t.UTC().Format("02-Jan-2006")
}
