// Package answers turns the flat, string-keyed answer bag posted by the
// assessment form into a typed table keyed by question id.
package answers

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Reserved key conventions of the answer bag.
const (
	AnswerPrefix   = "ANS_"
	ScorePrefix    = "SCORE_"
	CommentPrefix  = "CMT_"
	EvidencePrefix = "FILE_"
	SummaryKey     = "SUMMARY_COMMENTS"
)

// Bag is the raw submission map. It is treated as immutable once built.
type Bag map[string]string

// ParseBag decodes a persisted answer bag. Empty or malformed JSON yields an
// empty bag; null values are dropped and other non-string values are kept in
// their literal form.
func ParseBag(data []byte) Bag {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Bag{}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Bag{}
	}

	bag := make(Bag, len(raw))
	for k, v := range raw {
		literal := strings.TrimSpace(string(v))
		if literal == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			bag[k] = s
			continue
		}
		bag[k] = literal
	}
	return bag
}

// Clone returns an independent copy of the bag.
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Encode serializes the bag with keys in sorted order.
func (b Bag) Encode() ([]byte, error) {
	if b == nil {
		b = Bag{}
	}
	return json.Marshal(map[string]string(b))
}

// Merge returns a new bag with the entries of update layered over b. Empty
// update values remove the key.
func (b Bag) Merge(update Bag) Bag {
	out := b.Clone()
	for k, v := range update {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// ScoreKey, AnswerKey and CommentKey build the reserved keys for a question.
func ScoreKey(id int) string   { return ScorePrefix + strconv.Itoa(id) }
func AnswerKey(id int) string  { return AnswerPrefix + strconv.Itoa(id) }
func CommentKey(id int) string { return CommentPrefix + strconv.Itoa(id) }

// Entry is the typed view of one question's answer.
type Entry struct {
	Answer  string
	Comment string
	Score   int
	// Scored reports whether a usable score value was submitted.
	Scored bool
}

// Evidence is an uploaded-file reference found in the bag.
type Evidence struct {
	Key      string
	FileName string
}

// Sheet is the parsed submission.
type Sheet struct {
	Entries  map[int]Entry
	Summary  string
	Evidence []Evidence
}

// Entry returns the entry for a question id; missing questions yield the zero Entry.
func (s Sheet) Entry(id int) Entry {
	return s.Entries[id]
}

// Parse converts a bag into a Sheet. It never fails: unknown keys are
// ignored, and score values that are missing, non-numeric or negative count
// as zero.
func Parse(bag Bag) Sheet {
	sheet := Sheet{Entries: make(map[int]Entry)}

	for key, value := range bag {
		switch {
		case key == SummaryKey:
			sheet.Summary = strings.TrimSpace(value)

		case strings.HasPrefix(key, EvidencePrefix):
			name := strings.TrimSpace(value)
			if name == "" {
				name = strings.TrimPrefix(key, EvidencePrefix)
			}
			sheet.Evidence = append(sheet.Evidence, Evidence{Key: key, FileName: baseName(name)})

		case strings.HasPrefix(key, ScorePrefix):
			id, ok := questionID(key, ScorePrefix)
			if !ok {
				continue
			}
			e := sheet.Entries[id]
			e.Score, e.Scored = parseScore(value)
			sheet.Entries[id] = e

		case strings.HasPrefix(key, AnswerPrefix):
			id, ok := questionID(key, AnswerPrefix)
			if !ok {
				continue
			}
			e := sheet.Entries[id]
			e.Answer = strings.TrimSpace(value)
			sheet.Entries[id] = e

		case strings.HasPrefix(key, CommentPrefix):
			id, ok := questionID(key, CommentPrefix)
			if !ok {
				continue
			}
			e := sheet.Entries[id]
			e.Comment = strings.TrimSpace(value)
			sheet.Entries[id] = e
		}
	}

	sort.Slice(sheet.Evidence, func(i, j int) bool {
		return sheet.Evidence[i].Key < sheet.Evidence[j].Key
	})
	return sheet
}

// QuestionKey returns the question id a SCORE_, ANS_ or CMT_ key refers to.
// ok is false for any other key, including malformed ids.
func QuestionKey(key string) (id int, ok bool) {
	for _, prefix := range []string{ScorePrefix, AnswerPrefix, CommentPrefix} {
		if strings.HasPrefix(key, prefix) {
			return questionID(key, prefix)
		}
	}
	return 0, false
}

func questionID(key, prefix string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(key, prefix))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseScore(value string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	if n < 0 {
		return 0, true
	}
	return n, true
}

// baseName strips any directory part from an uploaded file reference. Both
// separators are handled since uploads come from browsers on any platform.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
