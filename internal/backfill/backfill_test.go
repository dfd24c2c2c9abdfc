package backfill

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/metrics"
	"github.com/opendatacollection/rechtspraak-scraper/internal/scraper"
	"github.com/opendatacollection/rechtspraak-scraper/internal/storage/memory"
)

type fakeStore struct {
	scraper.Store
	missing []scraper.Decision
	updated map[string]scraper.Decision
}

func newFakeStore(eclis ...string) *fakeStore {
	s := &fakeStore{updated: make(map[string]scraper.Decision)}
	for _, ecli := range eclis {
		s.missing = append(s.missing, scraper.Decision{
			ECLI:      ecli,
			Court:     "Hoge Raad",
			CourtType: "HR",
		})
	}
	return s
}

func (s *fakeStore) DecisionsWithoutRaw(_ context.Context, limit int) ([]scraper.Decision, error) {
	var out []scraper.Decision
	for _, d := range s.missing {
		if _, done := s.updated[d.ECLI]; done {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) InsertDecision(_ context.Context, d scraper.Decision) error {
	s.updated[d.ECLI] = d
	return nil
}

type fakeFetcher struct {
	broken map[string]bool
	calls  int
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.calls++
	ecli := url[strings.Index(url, "?id=")+len("?id="):]
	if f.broken[ecli] {
		return nil, errors.New("status 404")
	}
	return []byte("<open-rechtspraak>" + ecli + "</open-rechtspraak>"), nil
}

type noopThrottler struct{}

func (noopThrottler) Throttle(context.Context) error { return nil }

type fakeHasher struct{}

func (fakeHasher) Hash([]byte) (string, error) { return "deadbeef", nil }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestBackfiller(store scraper.Store, blobs *memory.BlobStore, fetcher scraper.Fetcher, cfg Config) *Backfiller {
	metrics.Init()
	if cfg.ContentURL == "" {
		cfg.ContentURL = "https://data.rechtspraak.nl/uitspraken/content"
	}
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return New(store, blobs, fetcher, noopThrottler{}, fakeHasher{}, fixedClock{now: now}, cfg, zap.NewNop())
}

func TestRunArchivesMissingDocuments(t *testing.T) {
	t.Parallel()

	store := newFakeStore("ECLI:NL:HR:2020:1", "ECLI:NL:HR:2020:2")
	blobs := memory.NewBlobStore()
	b := newTestBackfiller(store, blobs, &fakeFetcher{}, Config{})

	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Stored)
	require.Zero(t, stats.Failed)
	require.Equal(t, 2, blobs.Len())

	d := store.updated["ECLI:NL:HR:2020:1"]
	require.NotNil(t, d.XMLPath)
	require.Equal(t, "rechtspraak/NL/HR/2020/ECLI_NL_HR_2020_1.xml", *d.XMLPath)
	require.Equal(t, "deadbeef", d.RawSHA256)
	require.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), d.ScrapedAt)

	body, ok := blobs.Get(*d.XMLPath)
	require.True(t, ok)
	require.Contains(t, string(body), "ECLI:NL:HR:2020:1")
}

func TestRunStopsWhenNothingStored(t *testing.T) {
	t.Parallel()

	// Every fetch fails, so the batch makes no progress and the run must
	// end after a single iteration instead of spinning on the same rows.
	store := newFakeStore("ECLI:NL:HR:2020:1", "ECLI:NL:HR:2020:2")
	fetcher := &fakeFetcher{broken: map[string]bool{
		"ECLI:NL:HR:2020:1": true,
		"ECLI:NL:HR:2020:2": true,
	}}
	b := newTestBackfiller(store, memory.NewBlobStore(), fetcher, Config{})

	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Iterations)
	require.Equal(t, 2, stats.Failed)
	require.Zero(t, stats.Stored)
	require.Equal(t, 2, fetcher.calls)
}

func TestRunBatchesUntilDrained(t *testing.T) {
	t.Parallel()

	store := newFakeStore("ECLI:NL:HR:2020:1", "ECLI:NL:HR:2020:2", "ECLI:NL:HR:2020:3")
	b := newTestBackfiller(store, memory.NewBlobStore(), &fakeFetcher{}, Config{BatchSize: 2})

	stats, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.Stored)
	require.Equal(t, 3, stats.Iterations)
	require.Len(t, store.updated, 3)
}
