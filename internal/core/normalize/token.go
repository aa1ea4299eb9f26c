package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsWord reports whether r is considered a word character for boundary checks.
// Letters, numbers, combining marks (Mn) and connector punctuation (Pc) count;
// hyphen and most punctuation remain non-word
func IsWord(r rune) bool {
	if r == utf8.RuneError || r == 0 {
		return false
	}
	return unicode.IsLetter(r) ||
		unicode.IsNumber(r) ||
		unicode.In(r, unicode.Mn, unicode.Pc)
}

// AtBoundary reports whether s[start:end) is delimited by non-word runes
func AtBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if IsWord(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if IsWord(r) {
			return false
		}
	}
	return true
}

// Words splits s into word tokens. An apostrophe between two word runes
// stays inside the token so "don't" survives as one word
func Words(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := -1
	prevWord := false
	for i, r := range s {
		w := IsWord(r)
		if !w && r == '\'' && prevWord {
			nr, _ := utf8.DecodeRuneInString(s[i+1:])
			w = IsWord(nr)
		}
		switch {
		case w && start < 0:
			start = i
		case !w && start >= 0:
			out = append(out, s[start:i])
			start = -1
		}
		prevWord = w
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

var quoteFolder = strings.NewReplacer(
	"‘", "'", "’", "'", "ʼ", "'",
	"“", "\"", "”", "\"",
)

// foldQuotes maps typographic quotes to ASCII
func foldQuotes(s string) string { return quoteFolder.Replace(s) }
