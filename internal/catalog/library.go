package catalog

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ErrInvalidLibrary marks a recommendation library file that cannot be parsed.
var ErrInvalidLibrary = errors.New("invalid recommendation library")

// Guidance is the library content for one category. Items is the ordered
// simple list; Tiers optionally carries explicit lists per support tier
// ("mild", "moderate", "high").
type Guidance struct {
	Category string
	Items    []string
	Tiers    map[string][]string
}

// ForTier returns the explicit list for a tier, if the entry has one.
func (g Guidance) ForTier(tier string) ([]string, bool) {
	items, ok := g.Tiers[strings.ToLower(tier)]
	if !ok || len(items) == 0 {
		return nil, false
	}
	return append([]string(nil), items...), true
}

// Library maps section category to guidance. Lookups ignore case. A Library
// is read-only once built and safe for concurrent use.
type Library struct {
	entries map[string]Guidance
}

// NewLibrary builds a library from simple category -> items pairs.
func NewLibrary(simple map[string][]string) *Library {
	lib := &Library{entries: make(map[string]Guidance, len(simple))}
	for category, items := range simple {
		lib.put(Guidance{Category: category, Items: append([]string(nil), items...)})
	}
	return lib
}

func (l *Library) put(g Guidance) {
	g.Category = strings.TrimSpace(g.Category)
	l.entries[strings.ToLower(g.Category)] = g
}

// Lookup finds the guidance for a category, ignoring case and surrounding space.
func (l *Library) Lookup(category string) (Guidance, bool) {
	if l == nil {
		return Guidance{}, false
	}
	g, ok := l.entries[strings.ToLower(strings.TrimSpace(category))]
	return g, ok
}

// Categories lists the library's categories in sorted order.
func (l *Library) Categories() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.entries))
	for _, g := range l.entries {
		out = append(out, g.Category)
	}
	sort.Strings(out)
	return out
}

// Len is the number of categories.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// LoadLibrary reads a recommendation library file.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read recommendation library: %s", path)
	}

	lib, err := ParseLibrary(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load recommendation library: %s", path)
	}
	return lib, nil
}

// ParseLibrary decodes a library document. Each category value is either an
// array of strings (simple form) or an object of tier -> array of strings
// (tiered form); both forms may be mixed in one file. In the tiered form the
// "high" list, or failing that the longest tier list, doubles as the simple
// list so prefix selection keeps working for tiers the entry omits.
func ParseLibrary(data []byte) (*Library, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.Wrap(ErrInvalidLibrary, "malformed JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.Wrap(ErrInvalidLibrary, "top level must be an object")
	}

	lib := &Library{entries: make(map[string]Guidance)}
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		category := strings.TrimSpace(key.String())
		if category == "" {
			parseErr = errors.Wrap(ErrInvalidLibrary, "empty category name")
			return false
		}

		switch {
		case value.IsArray():
			lib.put(Guidance{Category: category, Items: stringList(value)})
		case value.IsObject():
			g := Guidance{Category: category, Tiers: make(map[string][]string)}
			value.ForEach(func(tier, items gjson.Result) bool {
				if !items.IsArray() {
					parseErr = errors.Wrapf(ErrInvalidLibrary, "category %q tier %q is not a list", category, tier.String())
					return false
				}
				g.Tiers[strings.ToLower(strings.TrimSpace(tier.String()))] = stringList(items)
				return true
			})
			if parseErr != nil {
				return false
			}
			g.Items = fullList(g.Tiers)
			lib.put(g)
		default:
			parseErr = errors.Wrapf(ErrInvalidLibrary, "category %q must be a list or a tier object", category)
			return false
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return lib, nil
}

func stringList(arr gjson.Result) []string {
	items := arr.Array()
	out := make([]string, 0, len(items))
	for _, it := range items {
		s := strings.TrimSpace(it.String())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fullList(tiers map[string][]string) []string {
	if high, ok := tiers["high"]; ok && len(high) > 0 {
		return append([]string(nil), high...)
	}
	var longest []string
	names := make([]string, 0, len(tiers))
	for name := range tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(tiers[name]) > len(longest) {
			longest = tiers[name]
		}
	}
	return append([]string(nil), longest...)
}
