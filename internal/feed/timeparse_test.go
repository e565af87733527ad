package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedParser(t *testing.T, tz string, now time.Time) TimeParser {
	loc, err := time.LoadLocation(tz)
	require.NoError(t, err)
	p := NewTimeParser(loc)
	p.Now = func() time.Time { return now.In(loc) }
	return p
}

func TestParseYesterday(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	p := fixedParser(t, "Asia/Shanghai", time.Date(2025, 1, 22, 10, 0, 0, 0, loc))

	got, err := p.Parse("Yesterday 2:09 PM")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 21, 14, 9, 0, 0, loc).UTC(), got)
	require.Equal(t, time.UTC, got.Location())
}

func TestParseSlashDate(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	p := fixedParser(t, "Asia/Shanghai", time.Date(2025, 1, 22, 10, 0, 0, 0, loc))

	got, err := p.Parse("1/21/25 2:09 PM")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 21, 14, 9, 0, 0, loc).UTC(), got)

	got, err = p.Parse("12/31/24 23:45")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 12, 31, 23, 45, 0, 0, loc).UTC(), got)
}

func TestParseWeekday(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	// 2025-01-22 is a Wednesday
	p := fixedParser(t, "Asia/Shanghai", time.Date(2025, 1, 22, 10, 0, 0, 0, loc))

	got, err := p.Parse("Mon 9:30 AM")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 20, 9, 30, 0, 0, loc).UTC(), got)

	// same weekday as today always means last week, never today
	got, err = p.Parse("Wed 9:30 AM")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 15, 9, 30, 0, 0, loc).UTC(), got)
}

func TestParseBareTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	p := fixedParser(t, "Asia/Shanghai", time.Date(2025, 1, 22, 10, 0, 0, 0, loc))

	got, err := p.Parse("2:09 PM")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 22, 14, 9, 0, 0, loc).UTC(), got)

	got, err = p.Parse("08:15")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 22, 8, 15, 0, 0, loc).UTC(), got)
}

func TestParseUnresolved(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	p := fixedParser(t, "Asia/Shanghai", time.Date(2025, 1, 22, 10, 0, 0, 0, loc))

	for _, input := range []string{
		"",
		"just now",
		"Yesterday",
		"13/45/25 2:09 PM",
		"1/21 2:09 PM",
		"Mon",
	} {
		_, err := p.Parse(input)
		require.ErrorIs(t, err, ErrTimestampUnresolved, "input %q", input)
	}
}

func TestParseDeterministicAcrossTimezones(t *testing.T) {
	instants := map[string]time.Time{}
	for _, tz := range []string{"Asia/Shanghai", "UTC", "America/Los_Angeles"} {
		loc, err := time.LoadLocation(tz)
		require.NoError(t, err)
		p := fixedParser(t, tz, time.Date(2025, 1, 22, 10, 0, 0, 0, loc))
		got, err := p.Parse("Yesterday 2:09 PM")
		require.NoError(t, err)
		instants[tz] = got
	}
	// same local rendering means different absolute instants per zone
	require.NotEqual(t, instants["Asia/Shanghai"], instants["UTC"])
	require.NotEqual(t, instants["UTC"], instants["America/Los_Angeles"])
}
