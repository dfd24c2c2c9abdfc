// Package scraper defines the domain types and contracts shared by the
// indexing and fetching phases.
// By keeping the store, blob and fetcher contracts as interfaces, the phase
// loops stay decoupled from Postgres, MinIO and the live rechtspraak.nl
// endpoints, which keeps them testable with in-memory fakes.
package scraper

import (
	"context"
	"time"
)

// IdentifierRecord is one discovered ECLI from the sitemap feed.
// Rows are keyed by ECLI; re-discovery of a known ECLI refreshes
// LastModified and SourceURL but never duplicates the row.
type IdentifierRecord struct {
	ECLI         string
	LastModified time.Time
	SourceURL    string

	// FirstSeen is set by the store on first insert and never touched again.
	FirstSeen time.Time
}

// Decision is the normalized metadata extracted from one uitspraak document.
// Pointer fields are nullable in the source data; a missing or unparseable
// value becomes nil rather than failing the record.
type Decision struct {
	ECLI            string
	CaseNumber      *string
	DecisionDate    *time.Time
	PublicationDate *time.Time
	Court           string
	CourtType       string
	ProcedureType   *string
	SubjectArea     *string
	Summary         *string
	ContentURL      string

	// XMLPath is the object-store key of the raw document, nil when raw
	// storage was disabled or the write happened before the backfill era.
	XMLPath *string

	// RawSHA256 is the hex digest of the fetched XML body.
	RawSHA256 string

	RelatedECLIs []string
	ScrapedAt    time.Time
}

// SitemapEntry is one (url, lastmod) pair from a sitemap window, with the
// ECLI already extracted from the URL.
type SitemapEntry struct {
	ECLI         string
	URL          string
	LastModified time.Time
}

// Store is the relational persistence contract consumed by both phases.
// The pending set is derived (identifiers minus decisions, by ECLI) and is
// never written to directly.
type Store interface {
	// UpsertIdentifiers writes identifier rows with last-write-wins
	// semantics on last_modified and returns the number of rows written.
	UpsertIdentifiers(ctx context.Context, recs []IdentifierRecord) (int, error)

	// PendingBatch returns up to limit identifiers that have no decision
	// row yet, in a deterministic order (last_modified, then ECLI).
	PendingBatch(ctx context.Context, limit int) ([]IdentifierRecord, error)

	// CountPending reports the current size of the derived pending set.
	CountPending(ctx context.Context) (int64, error)

	// InsertDecision upserts one decision row, keeping the row with the
	// greatest scraped_at on conflict.
	InsertDecision(ctx context.Context, d Decision) error

	// DecisionsWithoutRaw returns up to limit decisions whose raw XML was
	// never archived, for the backfill phase.
	DecisionsWithoutRaw(ctx context.Context, limit int) ([]Decision, error)
}

// Fetcher issues a single HTTP GET and returns the response body.
// Non-2xx responses are errors.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Hasher digests raw document bytes for the stored content hash.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Throttler gates outbound content requests to the source API.
type Throttler interface {
	Throttle(ctx context.Context) error
}

// Clock abstracts time.Now so window generation and scraped_at stamps are
// controllable in tests.
type Clock interface {
	Now() time.Time
}
