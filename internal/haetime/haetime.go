// Package haetime parses the timestamp strings emitted by Health Auto
// Export. The app formats times with the phone's locale settings, so the
// same export field arrives in several textual encodings depending on the
// device's 12/24-hour preference.
package haetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampFormatError reports a timestamp string that matched none of the
// known export formats.
type TimestampFormatError struct {
	Value string
}

func (e *TimestampFormatError) Error() string {
	return fmt.Sprintf("unrecognized HAE timestamp %q", e.Value)
}

// DayLayout is the calendar-day key format shared by all normalized rows.
const DayLayout = "2006-01-02"

// matcher recognizes one textual encoding. Matchers are independent: adding
// a new export format means appending to the list, not editing the others.
type matcher struct {
	re    *regexp.Regexp
	build func(groups []string) (time.Time, bool)
}

// matchers are tried in order. The 24-hour form is by far the most common
// and goes first.
var matchers = []matcher{
	{
		// "2026-01-15 14:30:00 +0000"
		re: regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2}) ([+-]\d{4})$`),
		build: func(g []string) (time.Time, bool) {
			hour, _ := strconv.Atoi(g[4])
			return buildTime(g[1], g[2], g[3], hour, g[5], g[6], g[7])
		},
	},
	{
		// "2026-01-15 2:30:00 PM +0000" — the separator before the meridiem
		// may be an ordinary space or U+202F (narrow no-break space), and the
		// meridiem marker arrives in either case.
		re: regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2}) (\d{1,2}):(\d{2}):(\d{2})[ \x{202F}]([APap][Mm]) ([+-]\d{4})$`),
		build: func(g []string) (time.Time, bool) {
			hour, _ := strconv.Atoi(g[4])
			if hour < 1 || hour > 12 {
				return time.Time{}, false
			}
			pm := strings.EqualFold(g[7], "PM")
			if !pm && hour == 12 {
				hour = 0
			}
			if pm && hour != 12 {
				hour += 12
			}
			return buildTime(g[1], g[2], g[3], hour, g[5], g[6], g[8])
		},
	},
}

func buildTime(year, month, day string, hour int, min, sec, offset string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	mi, _ := strconv.Atoi(min)
	se, _ := strconv.Atoi(sec)
	if mo < 1 || mo > 12 || d < 1 || hour > 23 || mi > 59 || se > 59 {
		return time.Time{}, false
	}

	offH, _ := strconv.Atoi(offset[1:3])
	offM, _ := strconv.Atoi(offset[3:5])
	offSec := offH*3600 + offM*60
	if offset[0] == '-' {
		offSec = -offSec
	}

	t := time.Date(y, time.Month(mo), d, hour, mi, se, 0, time.FixedZone("", offSec))
	// time.Date normalizes out-of-range days (Feb 31 becomes Mar 3), so a
	// corrupted export line would round-trip to a wrong instant. Reject any
	// date the constructor had to adjust.
	if t.Day() != d || t.Month() != time.Month(mo) || t.Year() != y {
		return time.Time{}, false
	}
	return t, true
}

// Parse converts an export timestamp string into an absolute instant. The
// trailing ±HHMM is treated as a fixed UTC offset; the result is always in
// UTC so every caller reads the same instant back.
func Parse(s string) (time.Time, error) {
	for _, m := range matchers {
		g := m.re.FindStringSubmatch(s)
		if g == nil {
			continue
		}
		if t, ok := m.build(g); ok {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &TimestampFormatError{Value: s}
}

// DayKey returns the UTC calendar day of t as "YYYY-MM-DD". All normalizers
// derive their day partition through this one function so day-boundary
// semantics stay consistent across metrics, sleep, and workouts.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
