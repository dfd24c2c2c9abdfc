package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sitemapSample = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://uitspraken.rechtspraak.nl/details?id=ECLI:NL:HR:2025:1</loc>
    <lastmod>2025-01-15T09:30:00Z</lastmod>
  </url>
  <url>
    <loc>https://uitspraken.rechtspraak.nl/details?id=ECLI:NL:RBAMS:2025:42</loc>
    <lastmod>2025-01-20</lastmod>
  </url>
  <url>
    <loc>https://uitspraken.rechtspraak.nl/zoeken</loc>
  </url>
  <url>
    <loc>https://uitspraken.rechtspraak.nl/details?id=ECLI:NL:HR:2025:2</loc>
  </url>
</urlset>`

func TestParseSitemap(t *testing.T) {
	t.Parallel()

	entries, skipped, err := ParseSitemap([]byte(sitemapSample))
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Len(t, entries, 3)

	require.Equal(t, "ECLI:NL:HR:2025:1", entries[0].ECLI)
	require.Equal(t, "https://uitspraken.rechtspraak.nl/details?id=ECLI:NL:HR:2025:1", entries[0].URL)
	require.Equal(t, time.Date(2025, time.January, 15, 9, 30, 0, 0, time.UTC), entries[0].LastModified)

	// Bare-date lastmod still parses.
	require.Equal(t, time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC), entries[1].LastModified)

	// Missing lastmod leaves the zero time for the caller to fill in.
	require.True(t, entries[2].LastModified.IsZero())
}

func TestParseSitemapEmpty(t *testing.T) {
	t.Parallel()

	entries, skipped, err := ParseSitemap([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`))
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Empty(t, entries)
}

func TestParseSitemapIdempotentOverSameInput(t *testing.T) {
	t.Parallel()

	first, _, err := ParseSitemap([]byte(sitemapSample))
	require.NoError(t, err)
	second, _, err := ParseSitemap([]byte(sitemapSample))
	require.NoError(t, err)
	require.Equal(t, first, second)
}
