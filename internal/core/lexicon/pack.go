package lexicon

import (
	"embed"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"chatlens/internal/core/intent"
	"chatlens/internal/core/model"
)

//go:embed packs/*.yaml
var embedded embed.FS

const packVersion = 1

// patternsFile holds the shared pattern, toxicity and stop word lexicons
const patternsFile = "patterns"

type rawTerms struct {
	Keywords []string `yaml:"keywords"`
	Phrases  []string `yaml:"phrases"`
}

func (r rawTerms) entries() []string {
	return append(slices.Clone(r.Keywords), r.Phrases...)
}

type rawDimension struct {
	Dimension string `yaml:"dimension"`
	Polarity  string `yaml:"polarity"`
	Role      string `yaml:"role"`
	rawTerms  `yaml:",inline"`
}

type rawTaxonomy struct {
	Version    int                            `yaml:"version"`
	Name       string                         `yaml:"name"`
	Dimensions []rawDimension                 `yaml:"dimensions"`
	Variants   map[string]map[string]rawTerms `yaml:"variants"`
}

type rawPatterns struct {
	Version   int                 `yaml:"version"`
	Stopwords []string            `yaml:"stopwords"`
	Patterns  map[string][]string `yaml:"patterns"`
	Toxicity  map[string][]string `yaml:"toxicity"`
	Critical  []string            `yaml:"critical"`
}

// Embedded lists the taxonomy packs compiled into the binary
func Embedded() []string {
	ents, err := embedded.ReadDir("packs")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if name != patternsFile {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// LoadTaxonomy compiles an embedded taxonomy pack by name
func LoadTaxonomy(name string) (*Taxonomy, error) {
	if name == "" || name == patternsFile {
		return nil, fmt.Errorf("lexicon: unknown taxonomy %q", name)
	}
	b, err := embedded.ReadFile("packs/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("lexicon: unknown taxonomy %q", name)
	}
	return ParseTaxonomy(b)
}

// LoadTaxonomyFile compiles a taxonomy pack from disk
func LoadTaxonomyFile(p string) (*Taxonomy, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %s: %w", p, err)
	}
	return ParseTaxonomy(b)
}

// ParseTaxonomy compiles a YAML taxonomy pack
func ParseTaxonomy(b []byte) (*Taxonomy, error) {
	var rt rawTaxonomy
	if err := yaml.Unmarshal(b, &rt); err != nil {
		return nil, fmt.Errorf("lexicon: parse taxonomy: %w", err)
	}
	if rt.Version != packVersion {
		return nil, fmt.Errorf("lexicon: unsupported taxonomy version %d (want %d)", rt.Version, packVersion)
	}
	if rt.Name == "" {
		return nil, fmt.Errorf("lexicon: taxonomy without a name")
	}
	if len(rt.Dimensions) == 0 {
		return nil, fmt.Errorf("lexicon: taxonomy %q has no dimensions", rt.Name)
	}

	specs := make([]intent.Spec, 0, len(rt.Dimensions))
	matchers := make(map[intent.Dimension]*Lexicon, len(rt.Dimensions))
	for _, rd := range rt.Dimensions {
		d := intent.Dimension(strings.ToLower(strings.TrimSpace(rd.Dimension)))
		if d == "" {
			return nil, fmt.Errorf("lexicon: taxonomy %q: dimension without a name", rt.Name)
		}
		if _, dup := matchers[d]; dup {
			return nil, fmt.Errorf("lexicon: taxonomy %q: duplicate dimension %q", rt.Name, d)
		}
		pol, err := parsePolarity(rd.Polarity)
		if err != nil {
			return nil, fmt.Errorf("lexicon: taxonomy %q dimension %q: %w", rt.Name, d, err)
		}
		role, err := parseRole(rd.Role)
		if err != nil {
			return nil, fmt.Errorf("lexicon: taxonomy %q dimension %q: %w", rt.Name, d, err)
		}
		specs = append(specs, intent.Spec{Dimension: d, Polarity: pol, Role: role})
		matchers[d] = New(rd.entries()...)
	}

	t := &Taxonomy{
		Name:     rt.Name,
		Schema:   intent.NewSchema(rt.Name, specs...),
		matchers: matchers,
		variants: make(map[string]map[intent.Dimension][]string, len(rt.Variants)),
	}
	for culture, dims := range rt.Variants {
		c := strings.ToLower(strings.TrimSpace(culture))
		add := make(map[intent.Dimension][]string, len(dims))
		for dn, terms := range dims {
			d := intent.Dimension(strings.ToLower(strings.TrimSpace(dn)))
			if !t.Schema.Has(d) {
				return nil, fmt.Errorf("lexicon: taxonomy %q variant %q: unknown dimension %q", rt.Name, c, d)
			}
			add[d] = terms.entries()
		}
		t.variants[c] = add
	}
	return t, nil
}

func parsePolarity(s string) (intent.Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return intent.Positive, nil
	case "negative":
		return intent.Negative, nil
	case "neutral", "":
		return intent.Neutral, nil
	}
	return intent.Neutral, fmt.Errorf("unknown polarity %q", s)
}

func parseRole(s string) (intent.Role, error) {
	r := intent.Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case intent.RoleNone, intent.RoleAlignment, intent.RoleResistance,
		intent.RoleClosure, intent.RoleUncertainty, intent.RoleUrgency:
		return r, nil
	}
	return intent.RoleNone, fmt.Errorf("unknown role %q", s)
}

// LoadPatterns compiles the embedded pattern pack
func LoadPatterns() (*Patterns, error) {
	b, err := embedded.ReadFile("packs/" + patternsFile + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("lexicon: read patterns: %w", err)
	}
	return ParsePatterns(b)
}

// ParsePatterns compiles a YAML pattern pack
func ParsePatterns(b []byte) (*Patterns, error) {
	var rp rawPatterns
	if err := yaml.Unmarshal(b, &rp); err != nil {
		return nil, fmt.Errorf("lexicon: parse patterns: %w", err)
	}
	if rp.Version != packVersion {
		return nil, fmt.Errorf("lexicon: unsupported patterns version %d (want %d)", rp.Version, packVersion)
	}

	p := &Patterns{
		stop:     make(map[string]struct{}, len(rp.Stopwords)),
		kinds:    make(map[PatternKind]*Lexicon, len(rp.Patterns)),
		toxicity: make(map[model.ToxicityCategory]*Lexicon, len(rp.Toxicity)),
		critical: make(map[model.ToxicityCategory]bool, len(rp.Critical)),
	}
	for _, w := range rp.Stopwords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			p.stop[w] = struct{}{}
		}
	}
	for k, entries := range rp.Patterns {
		kind := PatternKind(k)
		if !slices.Contains(patternKinds, kind) {
			return nil, fmt.Errorf("lexicon: unknown pattern kind %q", k)
		}
		p.kinds[kind] = New(entries...)
	}
	for c, entries := range rp.Toxicity {
		cat := model.ToxicityCategory(c)
		if !slices.Contains(toxicityOrder, cat) {
			return nil, fmt.Errorf("lexicon: unknown toxicity category %q", c)
		}
		p.toxicity[cat] = New(entries...)
	}
	for _, c := range rp.Critical {
		cat := model.ToxicityCategory(c)
		if !slices.Contains(toxicityOrder, cat) {
			return nil, fmt.Errorf("lexicon: unknown critical category %q", c)
		}
		p.critical[cat] = true
	}
	return p, nil
}
