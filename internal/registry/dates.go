package registry

import (
	"strconv"
	"time"
)

// ParseCompactDate parses a YYYYMMDD string into a calendar date (UTC
// midnight). The second return is false unless the string is exactly eight
// digits naming a real day, so 20230230 or 20231301 are rejected.
func ParseCompactDate(s string) (time.Time, bool) {
	if len(s) != 8 || !isDigits(s) {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// rangesOverlap reports whether the closed intervals [aStart,aEnd] and
// [bStart,bEnd] intersect.
func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// overlapsCompact parses both intervals and tests them. Any malformed date
// makes the pair non-conflicting.
func overlapsCompact(aStart, aEnd, bStart, bEnd string) bool {
	as, ok1 := ParseCompactDate(aStart)
	ae, ok2 := ParseCompactDate(aEnd)
	bs, ok3 := ParseCompactDate(bStart)
	be, ok4 := ParseCompactDate(bEnd)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return rangesOverlap(as, ae, bs, be)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
