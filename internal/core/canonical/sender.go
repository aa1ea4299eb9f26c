package canonical

import (
	"regexp"
	"strings"
)

// UnknownSender replaces senders that clean down to nothing
const UnknownSender = "Unknown"

var (
	viaSuffix   = regexp.MustCompile(`(?i)\s*\((?:via|sent via|from) [^)]*\)\s*$`)
	angleAddr   = regexp.MustCompile(`^(.*?)\s*<([^<>@\s]+)@[^<>\s]+>\s*$`)
	bareAddr    = regexp.MustCompile(`^([^@\s]+)@[^@\s]+\.[^@\s]+$`)
	bidiMarks   = strings.NewReplacer("\u200e", "", "\u200f", "", "\u202a", "", "\u202b", "", "\u202c", "", "\u202d", "", "\u202e", "", "\u2066", "", "\u2067", "", "\u2068", "", "\u2069", "", "\ufeff", "")
	botPrefixes = []string{"[bot]", "bot:", "~"}
)

// CleanSender strips export noise from a sender name and keeps its casing.
// ok=false means the name was empty and UnknownSender was substituted
func CleanSender(s string) (name string, ok bool) {
	s = strings.TrimSpace(bidiMarks.Replace(s))
	s = viaSuffix.ReplaceAllString(s, "")

	if m := angleAddr.FindStringSubmatch(s); m != nil {
		s = strings.Trim(strings.TrimSpace(m[1]), `"'`)
		if s == "" {
			s = m[2]
		}
	}
	if m := bareAddr.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	for changed := true; changed; {
		changed = false
		for _, p := range botPrefixes {
			if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
				s = strings.TrimSpace(s[len(p):])
				changed = true
			}
		}
		if strings.HasPrefix(s, "@") {
			s = strings.TrimSpace(s[1:])
			changed = true
		}
	}

	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return UnknownSender, false
	}
	return s, true
}
