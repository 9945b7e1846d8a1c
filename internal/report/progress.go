package report

import (
	"strings"
	"time"
)

// DefaultProgressTitle is used for progress reports without a title.
const DefaultProgressTitle = "Progress Assessment Report"

// HistoryRow is one completed assessment in a candidate's history.
type HistoryRow struct {
	Reference  string
	Date       time.Time
	Total      int
	Max        int
	Percentage float64
	Status     string
}

// ProgressDelta compares one score between the first and the latest
// assessment.
type ProgressDelta struct {
	Name       string
	First      int
	Latest     int
	Difference int
}

// ProgressSection is a section delta with its question deltas.
type ProgressSection struct {
	ProgressDelta
	Questions []ProgressDelta
}

// ProgressDocument is the read-only aggregate handed to progress renderers.
type ProgressDocument struct {
	Title      string
	Candidate  Candidate
	History    []HistoryRow
	First      HistoryRow
	Latest     HistoryRow
	Difference int
	Sections   []ProgressSection
	Charts     []Chart
	// GeneratedAt is the latest assessment's date so identical histories
	// render identical bytes.
	GeneratedAt time.Time
}

// BuildProgress fills in defaults the way Build does. The generation date
// comes from the latest assessment.
func BuildProgress(in ProgressDocument) ProgressDocument {
	doc := in
	doc.Title = orDefault(in.Title, DefaultProgressTitle)
	doc.Candidate = normalizeCandidate(in.Candidate)

	doc.History = make([]HistoryRow, 0, len(in.History))
	for _, h := range in.History {
		h.Reference = orDefault(strings.TrimSpace(h.Reference), Placeholder)
		h.Status = orDefault(h.Status, Placeholder)
		h.Date = h.Date.UTC()
		doc.History = append(doc.History, h)
	}

	doc.Charts = nil
	for _, ch := range in.Charts {
		if len(ch.Data) > 0 {
			doc.Charts = append(doc.Charts, ch)
		}
	}

	doc.GeneratedAt = in.Latest.Date.UTC()
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = generatedAt(AssessmentInfo{})
	}
	return doc
}
