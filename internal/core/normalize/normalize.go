// Package normalize provides the deterministic text normalizer used by the
// canonical transformer.
// Pipeline order
// 1 Repair UTF-8 and drop control characters
// 2 Unicode NFKC normalization
// 3 Case folding
// 4 Remove zero-width and combining marks
// 5 Width fold fullwidth to ASCII, typographic quotes to ASCII quotes
// 6 Aggressive only: drop quoted reply lines and code, redact urls emails
// and phone numbers, strip punctuation other than .,!?'-
// 7 Collapse whitespace to single spaces and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalizer is concurrency safe when used with the pool below
type Normalizer struct {
	aggressive bool
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithAggressive enables redaction and punctuation stripping
func WithAggressive(on bool) Option {
	return func(n *Normalizer) { n.aggressive = on }
}

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			width.Fold,                         // map fullwidth forms to ASCII
		)
	},
}

// New constructs a Normalizer
func New(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Aggressive reports whether aggressive mode is on
func (n *Normalizer) Aggressive() bool { return n.aggressive }

// Normalize returns the normalized form of s following the pipeline described above
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	// 1 repair UTF-8 then drop control runes
	s = strings.Map(keepRune, strings.ToValidUTF8(s, ""))

	// 2-5 transform via pooled chain then reset and return it
	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	ns = foldQuotes(ns)

	// 6 aggressive cleanup runs before whitespace collapse so line structure is still visible
	if n.aggressive {
		ns = StripZones(ns)
		ns = Redact(ns)
		ns = stripPunct(ns)
	}

	// 7 collapse whitespace and trim
	return collapseSpaces(ns)
}

// keepRune drops C0 controls other than tab and line breaks, DEL and the C1
// block. Chat exports carry these from terminal clients and pasted logs
func keepRune(r rune) rune {
	switch {
	case r == '\n', r == '\r', r == '\t':
		return r
	case r < 0x20, r >= 0x7f && r <= 0x9f:
		return -1
	}
	return r
}

// stripPunct keeps letters, digits, whitespace and a small punctuation set
func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(".,!?'-", r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// collapseSpaces converts whitespace runs, line breaks included, to a single
// ASCII space and trims the edges
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
