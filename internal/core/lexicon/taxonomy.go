package lexicon

import (
	"fmt"
	"slices"
	"strings"

	"chatlens/internal/core/intent"
)

// Default is the taxonomy used when none is requested
const Default = "business"

// Taxonomy is a compiled keyword pack: an ordered schema plus one matcher
// per dimension. The matcher map is the dispatch table for scoring
type Taxonomy struct {
	Name    string
	Culture string
	Schema  intent.Schema

	matchers map[intent.Dimension]*Lexicon
	variants map[string]map[intent.Dimension][]string
}

// Matcher returns the lexicon for d, or an empty one
func (t *Taxonomy) Matcher(d intent.Dimension) *Lexicon {
	if m, ok := t.matchers[d]; ok {
		return m
	}
	return New()
}

// Cultures lists the variant names the pack carries
func (t *Taxonomy) Cultures() []string {
	out := make([]string, 0, len(t.variants))
	for c := range t.variants {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// WithCulture returns a taxonomy whose matchers hold the base terms plus
// the named variant's terms. Variants only ever add terms
func (t *Taxonomy) WithCulture(culture string) (*Taxonomy, error) {
	culture = strings.ToLower(strings.TrimSpace(culture))
	if culture == "" || culture == t.Culture {
		return t, nil
	}
	add, ok := t.variants[culture]
	if !ok {
		return nil, fmt.Errorf("lexicon: taxonomy %q has no culture %q", t.Name, culture)
	}
	out := &Taxonomy{
		Name:     t.Name,
		Culture:  culture,
		Schema:   t.Schema,
		matchers: make(map[intent.Dimension]*Lexicon, len(t.matchers)),
		variants: t.variants,
	}
	for d, m := range t.matchers {
		if extra, ok := add[d]; ok {
			out.matchers[d] = m.Merge(extra...)
			continue
		}
		out.matchers[d] = m
	}
	return out, nil
}

// Resolve loads an embedded taxonomy and applies an optional culture
func Resolve(name, culture string) (*Taxonomy, error) {
	if name == "" {
		name = Default
	}
	t, err := LoadTaxonomy(name)
	if err != nil {
		return nil, err
	}
	return t.WithCulture(culture)
}
