package feed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrTimestampUnresolved means the rendered timestamp did not match any
// known shape. Callers treat it as "the fragment has not fully rendered
// yet" and retry navigation, never as a fatal condition.
var ErrTimestampUnresolved = errors.New("timestamp unresolved")

// TimeParser converts the short human-readable timestamps WeChat renders
// in the feed into absolute UTC instants. The feed uses four mutually
// exclusive shapes:
//
//	"Yesterday 2:09 PM"  yesterday's date + time of day
//	"1/21/25 2:09 PM"    explicit month/day/2-digit-year + time
//	"Wed 2:09 PM"        the most recent past occurrence of that weekday
//	"2:09 PM"            today + time of day
//
// Everything is interpreted in the device's timezone, then converted
// to UTC.
type TimeParser struct {
	Location *time.Location
	// Now is the clock used to anchor relative shapes; defaults to
	// time.Now.
	Now func() time.Time
}

func NewTimeParser(loc *time.Location) TimeParser {
	if loc == nil {
		loc = time.UTC
	}
	return TimeParser{Location: loc, Now: time.Now}
}

const yesterdayMarker = "yesterday"

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Parse resolves one rendered timestamp. Shapes are tried most specific
// first so "Yesterday" is never misread as a weekday.
func (p TimeParser) Parse(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty input: %w", ErrTimestampUnresolved)
	}

	now := p.Now().In(p.Location)

	lower := strings.ToLower(s)
	if strings.Contains(lower, yesterdayMarker) {
		idx := strings.Index(lower, yesterdayMarker)
		rest := s[:idx] + s[idx+len(yesterdayMarker):]
		hour, minute, err := parseClock(rest)
		if err != nil {
			return time.Time{}, err
		}
		day := now.AddDate(0, 0, -1)
		return p.instant(day, hour, minute), nil
	}

	if strings.Contains(s, "/") {
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return time.Time{}, fmt.Errorf("date without time %q: %w", s, ErrTimestampUnresolved)
		}
		year, month, day, err := parseSlashDate(fields[0])
		if err != nil {
			return time.Time{}, err
		}
		hour, minute, err := parseClock(strings.Join(fields[1:], " "))
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(year, month, day, hour, minute, 0, 0, p.Location).UTC(), nil
	}

	if fields := strings.Fields(s); len(fields) >= 2 {
		if wd, ok := weekdays[weekdayKey(fields[0])]; ok {
			hour, minute, err := parseClock(strings.Join(fields[1:], " "))
			if err != nil {
				return time.Time{}, err
			}
			// a weekday label always means at least a week has
			// passed when it names today's weekday
			delta := int(now.Weekday()-wd+7) % 7
			if delta == 0 {
				delta = 7
			}
			day := now.AddDate(0, 0, -delta)
			return p.instant(day, hour, minute), nil
		}
	}

	hour, minute, err := parseClock(s)
	if err != nil {
		return time.Time{}, err
	}
	return p.instant(now, hour, minute), nil
}

func (p TimeParser) instant(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, p.Location).UTC()
}

func weekdayKey(field string) string {
	k := strings.ToLower(field)
	if len(k) > 3 {
		k = k[:3]
	}
	return k
}

var clockLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

func parseClock(s string) (hour, minute int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		t, perr := time.Parse(layout, s)
		if perr == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("malformed time of day %q: %w", s, ErrTimestampUnresolved)
}

func parseSlashDate(s string) (year int, month time.Month, day int, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed date %q: %w", s, ErrTimestampUnresolved)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, convErr := strconv.Atoi(part)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("malformed date %q: %w", s, ErrTimestampUnresolved)
		}
		nums[i] = n
	}
	if nums[0] < 1 || nums[0] > 12 || nums[1] < 1 || nums[1] > 31 {
		return 0, 0, 0, fmt.Errorf("date out of range %q: %w", s, ErrTimestampUnresolved)
	}
	year = nums[2]
	if year < 100 {
		year += 2000
	}
	return year, time.Month(nums[0]), nums[1], nil
}
