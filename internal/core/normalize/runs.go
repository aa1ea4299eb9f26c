package normalize

import "unicode"

// SquashRuns keeps at most max repeats of any rune ("sooooo" -> "soo" for max 2)
func SquashRuns(s string, max int) string {
	if s == "" || max < 1 {
		return s
	}
	out := make([]rune, 0, len(s))
	var prev rune
	count := 0
	for _, r := range s {
		if r == prev {
			count++
			if count <= max {
				out = append(out, r)
			}
			continue
		}
		prev = r
		count = 1
		out = append(out, r)
	}
	return string(out)
}

// HasStretch reports whether s contains a letter repeated three or more
// times in a row, the usual way chat writers stretch a word for emphasis
func HasStretch(s string) bool {
	var prev rune
	count := 0
	for _, r := range s {
		if r == prev && unicode.IsLetter(r) {
			count++
			if count >= 3 {
				return true
			}
			continue
		}
		prev = r
		count = 1
	}
	return false
}
