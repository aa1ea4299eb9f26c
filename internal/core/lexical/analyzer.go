// Package lexical scores per-message intent from keyword taxonomies and
// flags linguistic patterns and toxicity. Every score is explainable through
// the returned keyword matches
package lexical

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"chatlens/internal/core/intent"
	"chatlens/internal/core/lexicon"
	"chatlens/internal/core/model"
	"chatlens/internal/core/normalize"
)

// Thesaurus is the optional synonym source
type Thesaurus interface {
	Synonyms(ctx context.Context, word string) ([]string, error)
}

// Config holds the scoring constants
type Config struct {
	// PhraseWeight multiplies phrase matches
	PhraseWeight float64
	// SynonymWeight is added per token whose synonym hits a dimension
	SynonymWeight float64
	// Saturation is the effective match count that maps to a score of 1
	Saturation float64
	// SynonymBudget bounds the whole synonym pass for one message. Each
	// lookup inside it is also bounded by the dictionary client
	SynonymBudget time.Duration
	// BatchSize controls progress and cancellation granularity
	BatchSize int
}

// Normalize fills defaults
func (c Config) Normalize() Config {
	if c.PhraseWeight <= 0 {
		c.PhraseWeight = 2
	}
	if c.SynonymWeight <= 0 {
		c.SynonymWeight = 0.5
	}
	if c.Saturation <= 0 {
		c.Saturation = 5
	}
	if c.SynonymBudget <= 0 {
		c.SynonymBudget = 200 * time.Millisecond
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 250
	}
	return c
}

// Analyzer is stateless per message and safe for concurrent use
type Analyzer struct {
	tax  *lexicon.Taxonomy
	pat  *lexicon.Patterns
	thes Thesaurus
	cfg  Config
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithThesaurus attaches a synonym source
func WithThesaurus(t Thesaurus) Option {
	return func(a *Analyzer) { a.thes = t }
}

// New builds an Analyzer over a compiled taxonomy and pattern pack
func New(tax *lexicon.Taxonomy, pat *lexicon.Patterns, cfg Config, opts ...Option) *Analyzer {
	a := &Analyzer{tax: tax, pat: pat, cfg: cfg.Normalize()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Schema is the intent schema the analyzer scores against
func (a *Analyzer) Schema() intent.Schema { return a.tax.Schema }

// AnalyzeAll returns copies of msgs carrying their lexical analysis
func (a *Analyzer) AnalyzeAll(ctx context.Context, msgs []model.Message, progress func(done, total int)) ([]model.Message, error) {
	out := make([]model.Message, len(msgs))
	for start := 0; start < len(msgs); start += a.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+a.cfg.BatchSize, len(msgs))
		for i := start; i < end; i++ {
			la := a.Analyze(ctx, msgs[i])
			out[i] = msgs[i].WithLexical(&la)
		}
		if progress != nil {
			progress(end, len(msgs))
		}
	}
	return out, nil
}

// Analyze scores one message
func (a *Analyzer) Analyze(ctx context.Context, m model.Message) model.LexicalAnalysis {
	scores, matches := a.score(m)
	prov := model.Provenance{Reason: "disabled"}
	if a.thes != nil {
		extra, syn, err := a.synonyms(ctx, m.Tokens, matches)
		if err != nil {
			prov = model.Provenance{Reason: err.Error()}
		} else {
			prov = model.Provenance{Used: true}
			for d, w := range extra {
				scores[d] += w
			}
			matches = append(matches, syn...)
		}
	}

	raw := make(map[intent.Dimension]float64, len(scores))
	for d, eff := range scores {
		raw[d] = min(1, eff/a.cfg.Saturation)
	}
	return model.LexicalAnalysis{
		Intent:     intent.Finalize(a.tax.Schema, raw),
		Patterns:   a.patterns(m),
		Toxicity:   a.toxicity(m.NormalizedText),
		Matches:    matches,
		Dictionary: prov,
	}
}

// score dispatches each dimension to its matcher and sums effective hits
func (a *Analyzer) score(m model.Message) (map[intent.Dimension]float64, []model.KeywordMatch) {
	scores := make(map[intent.Dimension]float64, a.tax.Schema.Len())
	var matches []model.KeywordMatch
	for _, d := range a.tax.Schema.Dimensions() {
		lex := a.tax.Matcher(d)
		for _, h := range lex.MatchTokens(m.Tokens) {
			scores[d] += float64(h.Count)
			matches = append(matches, model.KeywordMatch{Dimension: d, Term: h.Term, Kind: model.MatchToken, Count: h.Count, Weight: 1})
		}
		for _, h := range lex.MatchPhrases(m.NormalizedText) {
			scores[d] += float64(h.Count) * a.cfg.PhraseWeight
			matches = append(matches, model.KeywordMatch{Dimension: d, Term: h.Term, Kind: model.MatchPhrase, Count: h.Count, Weight: a.cfg.PhraseWeight})
		}
	}
	return scores, matches
}

// synonyms widens matching for tokens that hit nothing directly. Any failure
// discards the whole pass so the message falls back to keyword scoring
func (a *Analyzer) synonyms(ctx context.Context, tokens []string, direct []model.KeywordMatch) (extra map[intent.Dimension]float64, out []model.KeywordMatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			extra, out, err = nil, nil, fmt.Errorf("dictionary panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.SynonymBudget)
	defer cancel()

	hit := make(map[string]struct{}, len(direct))
	for _, m := range direct {
		hit[m.Term] = struct{}{}
	}
	extra = map[intent.Dimension]float64{}
	done := map[string]struct{}{}
	for _, tok := range tokens {
		if _, ok := hit[tok]; ok {
			continue
		}
		if _, ok := done[tok]; ok {
			continue
		}
		done[tok] = struct{}{}

		syns, err := a.thes.Synonyms(ctx, tok)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range a.tax.Schema.Dimensions() {
			lex := a.tax.Matcher(d)
			for _, s := range syns {
				if lex.HasTerm(s) {
					extra[d] += a.cfg.SynonymWeight
					out = append(out, model.KeywordMatch{Dimension: d, Term: tok + "~" + s, Kind: model.MatchSynonym, Count: 1, Weight: a.cfg.SynonymWeight})
					break
				}
			}
		}
	}
	return extra, out, nil
}

var clockTime = regexp.MustCompile(`\b\d{1,2}(?::\d{2})?\s?(?:am|pm)\b|\b\d{1,2}:\d{2}\b`)

// greetingWindow is how many leading words may carry a greeting
const greetingWindow = 4

func (a *Analyzer) patterns(m model.Message) model.LinguisticPatterns {
	norm := m.NormalizedText
	words := normalize.Words(norm)
	var p model.LinguisticPatterns

	p.IsQuestion = strings.Contains(m.Text, "?") ||
		(len(words) > 0 && a.pat.Pattern(lexicon.PatternQuestionStarter).HasTerm(words[0]))
	lead := strings.Join(words[:min(len(words), greetingWindow)], " ")
	p.IsGreeting = a.pat.Pattern(lexicon.PatternGreeting).Contains(lead)
	p.IsAcknowledgment = a.pat.Pattern(lexicon.PatternAcknowledgment).Contains(norm)
	p.HasTimeSensitivity = a.pat.Pattern(lexicon.PatternTimeSensitivity).Contains(norm) || clockTime.MatchString(norm)
	p.HasNegation = a.pat.Pattern(lexicon.PatternNegation).Contains(norm)
	p.HasHedging = a.pat.Pattern(lexicon.PatternHedging).Contains(norm)
	p.HasConditional = a.pat.Pattern(lexicon.PatternConditional).Contains(norm)
	p.HasEndearment = a.pat.Pattern(lexicon.PatternEndearment).Contains(norm)
	p.HasEmphasis = strings.Contains(m.Text, "!") || hasShouting(m.Text) || normalize.HasStretch(norm)
	return p
}

// hasShouting reports an all-caps word of at least three letters
func hasShouting(text string) bool {
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }) {
		letters := 0
		upper := true
		for _, r := range w {
			letters++
			if !unicode.IsUpper(r) {
				upper = false
				break
			}
		}
		if upper && letters >= 3 {
			return true
		}
	}
	return false
}

func (a *Analyzer) toxicity(norm string) model.ToxicityFlags {
	var f model.ToxicityFlags
	critical := false
	for _, c := range a.pat.ToxicityCategories() {
		hits := a.pat.Toxicity(c).MatchText(norm)
		if len(hits) == 0 {
			continue
		}
		f.Categories = append(f.Categories, c)
		for _, h := range hits {
			f.Terms = append(f.Terms, h.Term)
		}
		if a.pat.IsCritical(c) {
			critical = true
		}
	}
	f.Severity = severity(len(f.Categories), critical)
	return f
}

func severity(n int, critical bool) model.Severity {
	switch {
	case critical || n >= 4:
		return model.SeverityCritical
	case n == 3:
		return model.SeverityHigh
	case n == 2:
		return model.SeverityModerate
	case n == 1:
		return model.SeverityLow
	}
	return model.SeverityNone
}
