package normalize

import "strings"

// StripZones removes text the sender did not author in this message:
// fenced code between ``` markers, inline `code` and quoted reply lines
// that start with '>'. Line breaks are kept so callers can still collapse
func StripZones(s string) string {
	if s == "" || !strings.ContainsAny(s, "`>") {
		return s
	}
	s = stripFenced(s)
	s = stripInline(s)

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		if strings.HasPrefix(strings.TrimLeft(ln, " \t"), ">") {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n")
}

func stripFenced(s string) string {
	var b strings.Builder
	for {
		open := strings.Index(s, "```")
		if open < 0 {
			break
		}
		close := strings.Index(s[open+3:], "```")
		if close < 0 {
			// unterminated fence; leave the rest alone
			break
		}
		b.WriteString(s[:open])
		b.WriteByte(' ')
		s = s[open+3+close+3:]
	}
	b.WriteString(s)
	return b.String()
}

func stripInline(s string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(s, '`')
		if open < 0 {
			break
		}
		close := strings.IndexByte(s[open+1:], '`')
		if close < 0 {
			break
		}
		b.WriteString(s[:open])
		b.WriteByte(' ')
		s = s[open+1+close+1:]
	}
	b.WriteString(s)
	return b.String()
}
