package fields

import (
	"strconv"
	"strings"
	"time"
)

// twoDigitPivot splits two-digit years: below it is 20YY, otherwise 19YY.
const twoDigitPivot = 50

// ParseDate parses a month-first token such as 05/20/2022, 5-20-22 or 12/1/1999
// into a UTC calendar date. Impossible dates and three-digit years are rejected.
func ParseDate(tok string) (time.Time, bool) {
	parts := strings.FieldsFunc(tok, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return time.Time{}, false
	}
	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	switch len(parts[2]) {
	case 2:
		if year < twoDigitPivot {
			year += 2000
		} else {
			year += 1900
		}
	case 4:
	default:
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; reject instead.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
