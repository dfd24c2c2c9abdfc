// Package postgres provides the Postgres-backed record store.
//
// Expected schema:
//
//	CREATE TABLE identifiers (
//		ecli          TEXT PRIMARY KEY,
//		first_seen    TIMESTAMPTZ NOT NULL,
//		last_modified TIMESTAMPTZ NOT NULL,
//		source_url    TEXT NOT NULL
//	);
//
//	CREATE TABLE decisions (
//		ecli             TEXT PRIMARY KEY,
//		case_number      TEXT,
//		decision_date    TIMESTAMPTZ,
//		publication_date TIMESTAMPTZ,
//		court            TEXT NOT NULL,
//		court_type       TEXT NOT NULL,
//		procedure_type   TEXT,
//		subject_area     TEXT,
//		summary          TEXT,
//		content_url      TEXT NOT NULL,
//		xml_path         TEXT,
//		raw_sha256       TEXT NOT NULL DEFAULT '',
//		related_eclis    TEXT[] NOT NULL DEFAULT '{}',
//		scraped_at       TIMESTAMPTZ NOT NULL
//	);
//
// The pending set is never materialized; it is always the left-join
// difference of the two tables, so it cannot drift from them.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opendatacollection/rechtspraak-scraper/internal/scraper"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements scraper.Store on a pgx connection pool.
type Store struct {
	pool dbPool
}

// New connects to Postgres and pings it so misconfiguration fails at
// startup rather than mid-phase.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const upsertIdentifierSQL = `
INSERT INTO identifiers (ecli, first_seen, last_modified, source_url)
VALUES ($1, $2, $3, $4)
ON CONFLICT (ecli) DO UPDATE SET
	last_modified = EXCLUDED.last_modified,
	source_url = EXCLUDED.source_url
WHERE identifiers.last_modified <= EXCLUDED.last_modified`

// UpsertIdentifiers writes identifier rows keyed by ECLI. On conflict the
// row with the greatest last_modified wins; first_seen is only set on the
// initial insert. Returns the number of rows actually written.
func (s *Store) UpsertIdentifiers(ctx context.Context, recs []scraper.IdentifierRecord) (int, error) {
	written := 0
	for _, rec := range recs {
		tag, err := s.pool.Exec(ctx, upsertIdentifierSQL,
			rec.ECLI, rec.FirstSeen, rec.LastModified, rec.SourceURL)
		if err != nil {
			return written, fmt.Errorf("upsert identifier %s: %w", rec.ECLI, err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

const pendingBatchSQL = `
SELECT i.ecli, i.first_seen, i.last_modified, i.source_url
FROM identifiers i
LEFT JOIN decisions d ON d.ecli = i.ecli
WHERE d.ecli IS NULL
ORDER BY i.last_modified ASC, i.ecli ASC
LIMIT $1`

// PendingBatch returns up to limit identifiers without a decision row, in a
// deterministic order so batches are reproducible for the same store state.
func (s *Store) PendingBatch(ctx context.Context, limit int) ([]scraper.IdentifierRecord, error) {
	rows, err := s.pool.Query(ctx, pendingBatchSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending batch: %w", err)
	}
	defer rows.Close()

	var recs []scraper.IdentifierRecord
	for rows.Next() {
		var rec scraper.IdentifierRecord
		if err := rows.Scan(&rec.ECLI, &rec.FirstSeen, &rec.LastModified, &rec.SourceURL); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending rows: %w", err)
	}
	return recs, nil
}

const countPendingSQL = `
SELECT count(*)
FROM identifiers i
LEFT JOIN decisions d ON d.ecli = i.ecli
WHERE d.ecli IS NULL`

// CountPending reports the current size of the derived pending set.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, countPendingSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

const insertDecisionSQL = `
INSERT INTO decisions (
	ecli,
	case_number,
	decision_date,
	publication_date,
	court,
	court_type,
	procedure_type,
	subject_area,
	summary,
	content_url,
	xml_path,
	raw_sha256,
	related_eclis,
	scraped_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)
ON CONFLICT (ecli) DO UPDATE SET
	case_number = EXCLUDED.case_number,
	decision_date = EXCLUDED.decision_date,
	publication_date = EXCLUDED.publication_date,
	court = EXCLUDED.court,
	court_type = EXCLUDED.court_type,
	procedure_type = EXCLUDED.procedure_type,
	subject_area = EXCLUDED.subject_area,
	summary = EXCLUDED.summary,
	content_url = EXCLUDED.content_url,
	xml_path = EXCLUDED.xml_path,
	raw_sha256 = EXCLUDED.raw_sha256,
	related_eclis = EXCLUDED.related_eclis,
	scraped_at = EXCLUDED.scraped_at
WHERE decisions.scraped_at <= EXCLUDED.scraped_at`

// InsertDecision upserts one decision row, keeping the row with the
// greatest scraped_at on conflict. This is the explicit last-write-wins
// substitute for a replacing table engine; concurrent fetch runs racing on
// the same ECLI both succeed and the newest write remains current.
func (s *Store) InsertDecision(ctx context.Context, d scraper.Decision) error {
	if d.ECLI == "" {
		return fmt.Errorf("decision ecli is required")
	}
	related := d.RelatedECLIs
	if related == nil {
		related = []string{}
	}
	_, err := s.pool.Exec(ctx, insertDecisionSQL,
		d.ECLI,
		d.CaseNumber,
		d.DecisionDate,
		d.PublicationDate,
		d.Court,
		d.CourtType,
		d.ProcedureType,
		d.SubjectArea,
		d.Summary,
		d.ContentURL,
		d.XMLPath,
		d.RawSHA256,
		related,
		d.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision %s: %w", d.ECLI, err)
	}
	return nil
}

const decisionsWithoutRawSQL = `
SELECT ecli, case_number, decision_date, publication_date, court, court_type,
	procedure_type, subject_area, summary, content_url, xml_path, raw_sha256,
	related_eclis, scraped_at
FROM decisions
WHERE xml_path IS NULL
ORDER BY scraped_at ASC, ecli ASC
LIMIT $1`

// DecisionsWithoutRaw returns up to limit decisions whose raw XML was never
// archived, for the backfill phase.
func (s *Store) DecisionsWithoutRaw(ctx context.Context, limit int) ([]scraper.Decision, error) {
	rows, err := s.pool.Query(ctx, decisionsWithoutRawSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions without raw: %w", err)
	}
	defer rows.Close()

	var decisions []scraper.Decision
	for rows.Next() {
		var d scraper.Decision
		if err := rows.Scan(
			&d.ECLI,
			&d.CaseNumber,
			&d.DecisionDate,
			&d.PublicationDate,
			&d.Court,
			&d.CourtType,
			&d.ProcedureType,
			&d.SubjectArea,
			&d.Summary,
			&d.ContentURL,
			&d.XMLPath,
			&d.RawSHA256,
			&d.RelatedECLIs,
			&d.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}
	return decisions, nil
}
