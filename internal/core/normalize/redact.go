package normalize

import "regexp"

var (
	urlRe   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"]+`)
	emailRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9-]+(?:\.[a-z0-9-]+)+\b`)
	phoneRe = regexp.MustCompile(`\+?\d[\d ().-]{6,}\d`)
)

// Redact replaces urls, emails and phone numbers with placeholder words.
// Emails go first so their domains are not mistaken for urls
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = emailRe.ReplaceAllString(s, " email ")
	s = urlRe.ReplaceAllString(s, " url ")
	s = phoneRe.ReplaceAllString(s, " phone ")
	return s
}
