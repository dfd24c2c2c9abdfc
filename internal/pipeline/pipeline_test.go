package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/id/uuid"
	"github.com/opendatacollection/rechtspraak-scraper/internal/indexer"
	"github.com/opendatacollection/rechtspraak-scraper/internal/metrics"
	"github.com/opendatacollection/rechtspraak-scraper/internal/scraper"
	"github.com/opendatacollection/rechtspraak-scraper/internal/storage/memory"
	"github.com/opendatacollection/rechtspraak-scraper/internal/worker"
)

// memStore is an in-memory scraper.Store shared by both phases.
type memStore struct {
	mu          sync.Mutex
	identifiers map[string]scraper.IdentifierRecord
	decisions   map[string]scraper.Decision
}

func newMemStore() *memStore {
	return &memStore{
		identifiers: make(map[string]scraper.IdentifierRecord),
		decisions:   make(map[string]scraper.Decision),
	}
}

func (s *memStore) UpsertIdentifiers(_ context.Context, recs []scraper.IdentifierRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.identifiers[rec.ECLI] = rec
	}
	return len(recs), nil
}

func (s *memStore) PendingBatch(_ context.Context, limit int) ([]scraper.IdentifierRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scraper.IdentifierRecord
	for ecli, rec := range s.identifiers {
		if _, done := s.decisions[ecli]; done {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for ecli := range s.identifiers {
		if _, done := s.decisions[ecli]; !done {
			n++
		}
	}
	return n, nil
}

func (s *memStore) InsertDecision(_ context.Context, d scraper.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[d.ECLI] = d
	return nil
}

func (s *memStore) DecisionsWithoutRaw(context.Context, int) ([]scraper.Decision, error) {
	return nil, nil
}

// siteFetcher answers sitemap window queries with one entry and content
// queries with a minimal uitspraak document.
type siteFetcher struct{}

func (siteFetcher) Get(_ context.Context, url string) ([]byte, error) {
	if strings.Contains(url, "from=") {
		if !strings.Contains(url, "from=2024-01-01") {
			return []byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`), nil
		}
		return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://uitspraken.rechtspraak.nl/details?id=ECLI:NL:HR:2024:1</loc>
    <lastmod>2024-01-10</lastmod>
  </url>
</urlset>`), nil
	}
	ecli := url[strings.Index(url, "?id=")+len("?id="):]
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<open-rechtspraak xmlns:dcterms="http://purl.org/dc/terms/">
  <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
    <rdf:Description>
      <dcterms:identifier>%s</dcterms:identifier>
      <dcterms:creator>Hoge Raad</dcterms:creator>
    </rdf:Description>
  </rdf:RDF>
</open-rechtspraak>`, ecli)), nil
}

type noopThrottler struct{}

func (noopThrottler) Throttle(context.Context) error { return nil }

type fakeHasher struct{}

func (fakeHasher) Hash([]byte) (string, error) { return "cafe", nil }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newOrchestrator(store scraper.Store) *Orchestrator {
	metrics.Init()
	clock := fixedClock{now: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)}

	ix := indexer.New(
		indexer.Config{SitemapURL: "https://www.rechtspraak.nl/sitemap", StartYear: 2024},
		siteFetcher{}, store, clock, zap.NewNop())
	w := worker.New(store, memory.NewBlobStore(), siteFetcher{}, noopThrottler{}, fakeHasher{}, clock,
		worker.Config{ContentURL: "https://data.rechtspraak.nl/uitspraken/content", StoreXML: true},
		zap.NewNop())
	return New(ix, w, uuid.New(), zap.NewNop())
}

func TestRunBothPhasesEndToEnd(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	o := newOrchestrator(store)

	require.NoError(t, o.Run(context.Background(), PhaseBoth))

	require.Contains(t, store.identifiers, "ECLI:NL:HR:2024:1")
	d, ok := store.decisions["ECLI:NL:HR:2024:1"]
	require.True(t, ok)
	require.Equal(t, "Hoge Raad", d.Court)
	require.Equal(t, "cafe", d.RawSHA256)

	pending, err := store.CountPending(context.Background())
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestRunIndexOnlyLeavesPendingSet(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	o := newOrchestrator(store)

	require.NoError(t, o.Run(context.Background(), PhaseIndex))

	require.Contains(t, store.identifiers, "ECLI:NL:HR:2024:1")
	require.Empty(t, store.decisions)
}

func TestRunFetchOnlySkipsDiscovery(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.identifiers["ECLI:NL:HR:2023:9"] = scraper.IdentifierRecord{ECLI: "ECLI:NL:HR:2023:9"}
	o := newOrchestrator(store)

	require.NoError(t, o.Run(context.Background(), PhaseFetch))

	// Nothing new was discovered, but the seeded identifier was fetched.
	require.Len(t, store.identifiers, 1)
	require.Contains(t, store.decisions, "ECLI:NL:HR:2023:9")
}

func TestParsePhase(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Phase{
		"":      PhaseBoth,
		"both":  PhaseBoth,
		"index": PhaseIndex,
		"fetch": PhaseFetch,
	} {
		got, err := ParsePhase(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParsePhase("backwards")
	require.Error(t, err)
}

type failingIDGen struct{}

func (failingIDGen) NewID() (string, error) { return "", errors.New("entropy exhausted") }

func TestRunIDGenerationFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	o := newOrchestrator(store)
	o.idGen = failingIDGen{}

	err := o.Run(context.Background(), PhaseBoth)
	require.ErrorContains(t, err, "generate run id")
}
