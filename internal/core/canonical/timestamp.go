package canonical

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// epochMillisCutoff separates epoch seconds from epoch milliseconds
const epochMillisCutoff = 1e12

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
	"1/2/06, 15:04",
	"1/2/06, 15:04:05",
	"1/2/06, 3:04 PM",
	"1/2/2006, 15:04",
	"02/01/2006, 15:04:05",
	"02/01/2006, 15:04",
	"2006-01-02",
}

// ParseTimestamp converts the usual export encodings to UTC time.
// ok=false means the caller has to fall back
func ParseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x.UTC(), true
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return x.UTC(), true
	case int:
		return fromEpoch(float64(x))
	case int64:
		return fromEpoch(float64(x))
	case float64:
		return fromEpoch(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpoch(f)
	case string:
		return parseString(x)
	}
	return time.Time{}, false
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func fromEpoch(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}, false
	}
	if f >= epochMillisCutoff {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}
