package scraper

import (
	"bytes"
	"fmt"
	"time"

	"github.com/antchfx/xmlquery"
)

// ParseSitemap extracts ECLI entries from one sitemap window response.
// Entries whose URL carries no recognizable ECLI are skipped and counted in
// the second return value rather than failing the window.
func ParseSitemap(body []byte) ([]SitemapEntry, int, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse sitemap xml: %w", err)
	}

	var (
		entries []SitemapEntry
		skipped int
	)
	for _, node := range xmlquery.Find(doc, "//url") {
		loc := node.SelectElement("loc")
		if loc == nil {
			skipped++
			continue
		}
		rawURL := loc.InnerText()
		ecli, ok := ExtractECLI(rawURL)
		if !ok {
			skipped++
			continue
		}

		entry := SitemapEntry{ECLI: ecli, URL: rawURL}
		if lastmod := node.SelectElement("lastmod"); lastmod != nil {
			if ts := parseTimestamp(lastmod.InnerText()); ts != nil {
				entry.LastModified = *ts
			}
		}
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

// parseTimestamp accepts the timestamp shapes the feed actually emits:
// RFC 3339 with or without sub-second precision, or a bare date. Anything
// else is a nil timestamp, never an error.
func parseTimestamp(s string) *time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
