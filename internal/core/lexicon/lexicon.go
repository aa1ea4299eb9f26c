// Package lexicon compiles keyword lists into matchers and loads the
// embedded taxonomy and pattern packs used by the lexical analyzer
package lexicon

import (
	"slices"
	"strings"

	"chatlens/internal/core/normalize"
)

// Hit is one matched entry and how often it occurred
type Hit struct {
	Term   string
	Phrase bool
	Count  int
}

// Lexicon matches single words against tokens and multi-word phrases
// against normalized text at word boundaries
type Lexicon struct {
	terms   map[string]struct{}
	phrases []string
	ac      *automaton
}

var entryNorm = normalize.New()

// New compiles entries; anything containing whitespace becomes a phrase.
// Entries are normalized the same way message text is
func New(entries ...string) *Lexicon {
	l := &Lexicon{terms: make(map[string]struct{}, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		e = entryNorm.Normalize(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		if strings.ContainsRune(e, ' ') {
			l.phrases = append(l.phrases, e)
			continue
		}
		l.terms[e] = struct{}{}
	}
	slices.Sort(l.phrases)
	l.ac = newAutomaton()
	for i, p := range l.phrases {
		l.ac.add(p, i)
	}
	l.ac.build()
	return l
}

// Merge returns a new lexicon holding l's entries plus extra
func (l *Lexicon) Merge(extra ...string) *Lexicon {
	all := append(l.Terms(), l.phrases...)
	return New(append(all, extra...)...)
}

// Terms returns the single-word entries in sorted order
func (l *Lexicon) Terms() []string {
	out := make([]string, 0, len(l.terms))
	for t := range l.terms {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Phrases returns the multi-word entries in sorted order
func (l *Lexicon) Phrases() []string { return slices.Clone(l.phrases) }

// Len is the number of entries
func (l *Lexicon) Len() int { return len(l.terms) + len(l.phrases) }

// HasTerm reports whether w is a single-word entry
func (l *Lexicon) HasTerm(w string) bool {
	_, ok := l.terms[w]
	return ok
}

// MatchTokens counts single-word entries among tokens, sorted by term.
// Stretched tokens ("nooo") fall back to their squashed forms
func (l *Lexicon) MatchTokens(tokens []string) []Hit {
	if len(l.terms) == 0 || len(tokens) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, t := range tokens {
		if term, ok := l.lookup(t); ok {
			counts[term]++
		}
	}
	return sortedHits(counts, false)
}

func (l *Lexicon) lookup(tok string) (string, bool) {
	if _, ok := l.terms[tok]; ok {
		return tok, true
	}
	if !normalize.HasStretch(tok) {
		return "", false
	}
	for _, max := range [...]int{2, 1} {
		sq := normalize.SquashRuns(tok, max)
		if sq == tok {
			continue
		}
		if _, ok := l.terms[sq]; ok {
			return sq, true
		}
	}
	return "", false
}

// MatchPhrases counts phrase occurrences in normalized text, sorted by phrase
func (l *Lexicon) MatchPhrases(text string) []Hit {
	if len(l.phrases) == 0 || text == "" {
		return nil
	}
	counts := map[string]int{}
	l.ac.scan(text, func(end, id int) {
		p := l.phrases[id]
		if normalize.AtBoundary(text, end-len(p), end) {
			counts[p]++
		}
	})
	return sortedHits(counts, true)
}

// MatchText matches both terms (over every word of text) and phrases
func (l *Lexicon) MatchText(text string) []Hit {
	return append(l.MatchTokens(normalize.Words(text)), l.MatchPhrases(text)...)
}

// Contains reports whether anything matches text
func (l *Lexicon) Contains(text string) bool {
	for _, w := range normalize.Words(text) {
		if _, ok := l.lookup(w); ok {
			return true
		}
	}
	return len(l.MatchPhrases(text)) > 0
}

func sortedHits(counts map[string]int, phrase bool) []Hit {
	if len(counts) == 0 {
		return nil
	}
	out := make([]Hit, 0, len(counts))
	for t, c := range counts {
		out = append(out, Hit{Term: t, Phrase: phrase, Count: c})
	}
	slices.SortFunc(out, func(a, b Hit) int { return strings.Compare(a.Term, b.Term) })
	return out
}
