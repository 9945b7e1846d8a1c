// Package recommend derives remediation guidance from a score model.
package recommend

import (
	"sort"
	"strings"

	"cataid-backend/internal/catalog"
	"cataid-backend/internal/scoring"
)

// Tier is the support level a section needs.
type Tier int

const (
	None Tier = iota
	Mild
	Moderate
	High
)

// Percentage breakpoints, inclusive lower bounds.
const (
	mildFrom     = 90.0
	moderateFrom = 70.0
)

func (t Tier) String() string {
	switch t {
	case Mild:
		return "mild"
	case Moderate:
		return "moderate"
	case High:
		return "high"
	default:
		return "none"
	}
}

// TierFor maps a section percentage to a support tier. A section with no
// score at all is treated as not assessed and gets None.
func TierFor(pct float64) Tier {
	switch {
	case pct >= mildFrom:
		return Mild
	case pct >= moderateFrom:
		return Moderate
	case pct > 0:
		// Values in (0, 1) show some completed work and get full support too.
		return High
	default:
		return None
	}
}

// take returns how many items of the full list a tier selects; -1 means all.
func (t Tier) take() int {
	switch t {
	case Mild:
		return 1
	case Moderate:
		return 2
	case High:
		return -1
	default:
		return 0
	}
}

// Fallback is used for sections the library does not know.
var Fallback = []string{
	"Provide structured support to strengthen this skill area.",
	"Use guided practice with gradual reduction of prompts.",
	"Monitor progress regularly and modify strategies as needed.",
}

// Set maps category to ordered guidance.
type Set map[string][]string

// Block is one category's guidance in display order.
type Block struct {
	Category string
	Tier     Tier
	Items    []string
}

// Engine selects guidance from an injected library.
type Engine struct {
	library *catalog.Library
}

// NewEngine creates an engine over lib. A nil library makes every section
// use the fallback list.
func NewEngine(lib *catalog.Library) *Engine {
	return &Engine{library: lib}
}

// Recommend computes the recommendation set. maxima supplies each section's
// maximum score (see scoring.SectionMaxima); sections without a positive
// maximum are skipped. Scores above the maximum are clamped before the
// percentage is taken.
func (e *Engine) Recommend(m scoring.Model, maxima map[string]int) Set {
	out := make(Set)
	for categoryRaw, scoreRaw := range m.SectionScores {
		category := strings.TrimSpace(categoryRaw)
		if category == "" {
			continue
		}
		limit, ok := lookupMax(maxima, categoryRaw, category)
		if !ok || limit <= 0 {
			continue
		}

		tier := TierFor(percentage(scoreRaw, limit))
		if tier == None {
			continue
		}
		out[category] = e.guidance(category, tier)
	}
	return out
}

// Tiers reports the tier of every section with a positive maximum.
func (e *Engine) Tiers(m scoring.Model, maxima map[string]int) map[string]Tier {
	out := make(map[string]Tier, len(m.SectionScores))
	for categoryRaw, scoreRaw := range m.SectionScores {
		category := strings.TrimSpace(categoryRaw)
		limit, ok := lookupMax(maxima, categoryRaw, category)
		if category == "" || !ok || limit <= 0 {
			continue
		}
		out[category] = TierFor(percentage(scoreRaw, limit))
	}
	return out
}

func percentage(score, limit int) float64 {
	if score < 0 {
		score = 0
	}
	if score > limit {
		score = limit
	}
	return float64(score) / float64(limit) * 100
}

func lookupMax(maxima map[string]int, raw, trimmed string) (int, bool) {
	if v, ok := maxima[raw]; ok {
		return v, true
	}
	if v, ok := maxima[trimmed]; ok {
		return v, true
	}
	for k, v := range maxima {
		if strings.EqualFold(strings.TrimSpace(k), trimmed) {
			return v, true
		}
	}
	return 0, false
}

func (e *Engine) guidance(category string, tier Tier) []string {
	full := Fallback
	if g, ok := e.library.Lookup(category); ok {
		if items, ok := g.ForTier(tier.String()); ok {
			return items
		}
		if len(g.Items) > 0 {
			full = g.Items
		}
	}

	n := tier.take()
	if n < 0 || n > len(full) {
		n = len(full)
	}
	return append([]string(nil), full[:n]...)
}

// Ordered lists the set in catalog section order; categories the catalog does
// not know follow alphabetically.
func Ordered(set Set, cat *catalog.Catalog, tiers map[string]Tier) []Block {
	blocks := make([]Block, 0, len(set))
	used := make(map[string]bool, len(set))

	if cat != nil {
		for _, sec := range cat.Sections {
			for category, items := range set {
				if used[category] || !strings.EqualFold(category, sec.Category) {
					continue
				}
				used[category] = true
				blocks = append(blocks, Block{Category: category, Tier: TierOf(tiers, category), Items: items})
			}
		}
	}

	rest := make([]string, 0, len(set))
	for category := range set {
		if !used[category] {
			rest = append(rest, category)
		}
	}
	sort.Strings(rest)
	for _, category := range rest {
		blocks = append(blocks, Block{Category: category, Tier: TierOf(tiers, category), Items: set[category]})
	}
	return blocks
}

// TierOf looks a category up in tiers ignoring case and surrounding space.
// Unknown categories get None.
func TierOf(tiers map[string]Tier, category string) Tier {
	if t, ok := tiers[category]; ok {
		return t
	}
	want := strings.TrimSpace(category)
	for k, t := range tiers {
		if strings.EqualFold(strings.TrimSpace(k), want) {
			return t
		}
	}
	return None
}
