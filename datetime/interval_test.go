package datetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
}

func TestUnitFromName(t *testing.T) {
	for name, want := range map[string]Unit{
		"second": Second, "seconds": Second,
		"minute": Minute, "Hours": Hour,
		"day": Day, "weeks": Week, "month": Month,
	} {
		u, ok := UnitFromName(name)
		require.True(t, ok, name)
		assert.Equal(t, want, u, name)
	}
	_, ok := UnitFromName("fortnight")
	assert.False(t, ok)
}

func TestParseAnchor(t *testing.T) {
	a, ok := ParseAnchor("15", Hour)
	require.True(t, ok)
	assert.Equal(t, AnchorMinute, a.Kind)
	assert.Equal(t, 15, a.Minute)

	a, ok = ParseAnchor("03:30", Day)
	require.True(t, ok)
	assert.Equal(t, AnchorTime, a.Kind)
	assert.Equal(t, 3, a.Hour)
	assert.Equal(t, 30, a.Minute)

	a, ok = ParseAnchor("wed 12:00", Week)
	require.True(t, ok)
	assert.Equal(t, AnchorWeekday, a.Kind)
	assert.Equal(t, time.Wednesday, a.Weekday)

	a, ok = ParseAnchor("ultimo 22:00", Month)
	require.True(t, ok)
	assert.Equal(t, AnchorDay, a.Kind)
	assert.Equal(t, Ultimo, a.Day)

	a, ok = ParseAnchor("15 06:30", Month)
	require.True(t, ok)
	assert.Equal(t, 15, a.Day)

	for _, bad := range []string{"61", "25:00", "someday 10:00", "32 10:00"} {
		if _, ok := ParseAnchor(bad, Hour); ok {
			t.Errorf("anchor %q accepted for hour unit", bad)
		}
	}
}

func TestDuration(t *testing.T) {
	iv := Unanchored(TimeSpan{Unit: Hour, Count: 3})
	assert.Equal(t, 3*time.Hour, iv.Duration(at(2022, 6, 1, 0, 0)))

	// month spans walk the calendar
	iv = Unanchored(TimeSpan{Unit: Month, Count: 1})
	assert.Equal(t, 31*24*time.Hour, iv.Duration(at(2023, 1, 15, 0, 0)))
	assert.Equal(t, 28*24*time.Hour, iv.Duration(at(2023, 2, 1, 0, 0)))
	assert.Equal(t, 29*24*time.Hour, iv.Duration(at(2024, 2, 1, 0, 0)))

	// century leap year rule
	assert.Equal(t, 28*24*time.Hour, iv.Duration(at(2100, 2, 1, 0, 0)))
	assert.Equal(t, 29*24*time.Hour, iv.Duration(at(2000, 2, 1, 0, 0)))

	// bounded to one leap year
	iv = Unanchored(TimeSpan{Unit: Month, Count: 14})
	assert.Equal(t, MaxDuration, iv.Duration(at(2023, 1, 1, 0, 0)))
	iv = Unanchored(TimeSpan{Unit: Week, Count: 60})
	assert.Equal(t, MaxDuration, iv.Duration(at(2023, 1, 1, 0, 0)))
}

func TestNextElapseUnanchored(t *testing.T) {
	iv := Unanchored(TimeSpan{Unit: Minute, Count: 30})
	assert.Equal(t, at(2022, 1, 1, 10, 30), iv.NextElapse(at(2022, 1, 1, 10, 0)))
}

func TestNextElapseHourlyAnchored(t *testing.T) {
	iv := Anchored(TimeSpan{Unit: Hour, Count: 1},
		&Anchor{Kind: AnchorMinute, Minute: 15})

	// candidate 11:50, nearest anchored moment is 12:15
	assert.Equal(t, at(2022, 3, 15, 12, 15), iv.NextElapse(at(2022, 3, 15, 10, 50)))

	// candidate 11:20, nearest anchored moment is 11:15
	assert.Equal(t, at(2022, 3, 15, 11, 15), iv.NextElapse(at(2022, 3, 15, 10, 20)))

	// exact tie at 10:45 -> candidate 11:45, prefers the future moment
	assert.Equal(t, at(2022, 3, 15, 12, 15), iv.NextElapse(at(2022, 3, 15, 10, 45)))
}

func TestNextElapseDailyAnchored(t *testing.T) {
	iv := Anchored(TimeSpan{Unit: Day, Count: 1},
		&Anchor{Kind: AnchorTime, Hour: 3, Minute: 30})

	// year transition
	assert.Equal(t, at(2023, 1, 2, 3, 30), iv.NextElapse(at(2022, 12, 31, 20, 0)))

	// candidate 02:00 lies just before the same day's 03:30 anchor
	assert.Equal(t, at(2022, 7, 11, 3, 30), iv.NextElapse(at(2022, 7, 10, 2, 0)))
}

func TestNextElapseWeeklyAnchored(t *testing.T) {
	iv := Anchored(TimeSpan{Unit: Week, Count: 1},
		&Anchor{Kind: AnchorWeekday, Weekday: time.Wednesday, Hour: 12, Minute: 0})

	// 2022-06-01 is a Wednesday; from its anchor the next elapse is the
	// following Wednesday
	assert.Equal(t, at(2022, 6, 8, 12, 0), iv.NextElapse(at(2022, 6, 1, 12, 0)))

	// from a Friday, one week later lands on Friday again; the nearest
	// anchored Wednesday is the one just passed
	assert.Equal(t, at(2022, 6, 8, 12, 0), iv.NextElapse(at(2022, 6, 3, 9, 0)))
}

func TestNextElapseMonthlyUltimo(t *testing.T) {
	iv := Anchored(TimeSpan{Unit: Month, Count: 1},
		&Anchor{Kind: AnchorDay, Day: Ultimo, Hour: 22, Minute: 0})

	// leap year February: candidate overshoots into March, the closest
	// anchored moment is February 29th
	assert.Equal(t, at(2024, 2, 29, 22, 0), iv.NextElapse(at(2024, 1, 31, 22, 0)))

	// regular year
	assert.Equal(t, at(2023, 2, 28, 22, 0), iv.NextElapse(at(2023, 1, 31, 22, 0)))

	// 30 day month
	assert.Equal(t, at(2022, 4, 30, 22, 0), iv.NextElapse(at(2022, 3, 31, 22, 0)))
}

func TestNextElapseMonthlyDayClamped(t *testing.T) {
	iv := Anchored(TimeSpan{Unit: Month, Count: 1},
		&Anchor{Kind: AnchorDay, Day: 31, Hour: 0, Minute: 0})
	// day 31 clamps to the shorter month's last day
	got := iv.NextElapse(at(2022, 1, 31, 0, 0))
	assert.Equal(t, at(2022, 2, 28, 0, 0), got)
}
