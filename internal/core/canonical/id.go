package canonical

import (
	"strconv"
	"strings"
	"time"
)

// idTextPrefix is how many runes of text feed the id hash
const idTextPrefix = 50

// MessageID derives the stable id for a message: a 32-bit rolling hash of
// the lowercased sender, the unix millisecond timestamp and the first 50
// runes of text, in base 36, suffixed with the message position
func MessageID(sender string, ts time.Time, text string, position int) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(sender))
	b.WriteString(strconv.FormatInt(ts.UnixMilli(), 10))
	n := 0
	for _, r := range text {
		if n == idTextPrefix {
			break
		}
		b.WriteRune(r)
		n++
	}

	var h int32
	for _, r := range b.String() {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36) + "_" + strconv.Itoa(position)
}
