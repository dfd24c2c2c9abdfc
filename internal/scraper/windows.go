package scraper

import "time"

// Window is one sitemap crawl window. From is inclusive; To is the first
// day of the following month, which doubles as the From of the next window
// so coverage is contiguous with no gaps.
type Window struct {
	From time.Time
	To   time.Time
}

// FromDate formats the window start for the sitemap query string.
func (w Window) FromDate() string { return w.From.Format("2006-01-02") }

// ToDate formats the window end for the sitemap query string.
func (w Window) ToDate() string { return w.To.Format("2006-01-02") }

// MonthlyWindows partitions [startYear-01-01, today] into calendar-month
// windows, in chronological order. The final window runs through the end of
// the month containing today, so documents published on today's date are
// always covered.
//
// The sitemap endpoint returns a bounded result per call; windowing is what
// lets the indexer reach full coverage, and chronological order is what
// makes interrupted runs resumable by simply restarting from startYear.
func MonthlyWindows(startYear int, today time.Time) []Window {
	current := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

	var windows []Window
	for current.Before(end) {
		next := current.AddDate(0, 1, 0)
		windows = append(windows, Window{From: current, To: next})
		current = next
	}
	return windows
}
