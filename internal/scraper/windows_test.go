package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonthlyWindowsCoverage(t *testing.T) {
	t.Parallel()

	today := time.Date(2021, time.March, 15, 10, 0, 0, 0, time.UTC)
	windows := MonthlyWindows(2020, today)

	// Jan 2020 .. Mar 2021 inclusive, one window per month.
	require.Len(t, windows, 15)

	require.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), windows[0].From)

	// Contiguous: each window ends exactly where the next begins.
	for i := 1; i < len(windows); i++ {
		require.Equal(t, windows[i-1].To, windows[i].From, "gap or overlap at window %d", i)
	}

	// Today falls inside the covered range.
	last := windows[len(windows)-1]
	require.True(t, last.To.After(today))
}

func TestMonthlyWindowsChronological(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	windows := MonthlyWindows(2000, today)

	for i := 1; i < len(windows); i++ {
		require.True(t, windows[i].From.After(windows[i-1].From))
	}
	require.Equal(t, "2000-01-01", windows[0].FromDate())
	require.Equal(t, "2000-02-01", windows[0].ToDate())
}

func TestMonthlyWindowsStartYearInCurrentYear(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	windows := MonthlyWindows(2026, today)

	require.Len(t, windows, 1)
	require.Equal(t, "2026-01-01", windows[0].FromDate())
	require.Equal(t, "2026-02-01", windows[0].ToDate())
}
