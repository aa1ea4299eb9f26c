// Package langhint provides coarse script detection for message text.
package langhint

import "unicode"

// scripts in tie-break order: specific scripts win over Latin
var scripts = []struct {
	name  string
	table *unicode.RangeTable
}{
	{"Hiragana", unicode.Hiragana},
	{"Katakana", unicode.Katakana},
	{"Hangul", unicode.Hangul},
	{"Han", unicode.Han},
	{"Arabic", unicode.Arabic},
	{"Hebrew", unicode.Hebrew},
	{"Thai", unicode.Thai},
	{"Greek", unicode.Greek},
	{"Cyrillic", unicode.Cyrillic},
	{"Georgian", unicode.Georgian},
	{"Armenian", unicode.Armenian},
	{"Devanagari", unicode.Devanagari},
	{"Latin", unicode.Latin},
}

// Script returns the predominant script of s, or "" when s has no letters
func Script(s string) string {
	counts := make([]int, len(scripts))
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		for i, sc := range scripts {
			if unicode.Is(sc.table, r) {
				counts[i]++
				break
			}
		}
	}
	best, bestN := "", 0
	for i, n := range counts {
		if n > bestN {
			best, bestN = scripts[i].name, n
		}
	}
	return best
}

// Dominant returns the most common non-empty script in names; ties go to
// the script listed first in the tie-break order
func Dominant(names []string) string {
	counts := map[string]int{}
	for _, n := range names {
		if n != "" {
			counts[n]++
		}
	}
	best, bestN := "", 0
	for _, sc := range scripts {
		if n := counts[sc.name]; n > bestN {
			best, bestN = sc.name, n
		}
	}
	return best
}
