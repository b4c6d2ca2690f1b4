// Package postgres persists end-of-call reports to PostgreSQL for offline
// review. The segment store stays on the filesystem; only the report metadata
// (which segments a call produced) goes to the database.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Plasmow/VoiceScamShield/internal/call"
)

// Schema is the SQL DDL for the call_segments table. Execute it via
// [ReportStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS call_segments (
    call_id      TEXT NOT NULL,
    position     INTEGER NOT NULL,
    speaker      TEXT NOT NULL,
    timestamp_ms BIGINT NOT NULL,
    file         TEXT NOT NULL,
    reported_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (call_id, position)
);
CREATE INDEX IF NOT EXISTS idx_call_segments_call ON call_segments(call_id);
`

// DB is the database interface used by [ReportStore]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ReportStore persists per-call segment reports.
type ReportStore struct {
	db DB
}

// NewReportStore creates a ReportStore using the given connection or pool.
// The caller is responsible for calling [ReportStore.Migrate] before issuing
// queries.
func NewReportStore(db DB) *ReportStore {
	return &ReportStore{db: db}
}

// Connect opens a pgx pool for dsn and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Migrate executes the [Schema] DDL, creating the call_segments table and
// index if they do not already exist.
func (s *ReportStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// SaveReport replaces the stored report for callID with the given segments,
// preserving report order via the position column. Saving the same report
// twice is idempotent.
func (s *ReportStore) SaveReport(ctx context.Context, callID string, segments []call.Segment) error {
	const del = `DELETE FROM call_segments WHERE call_id = $1`
	if _, err := s.db.Exec(ctx, del, callID); err != nil {
		return fmt.Errorf("postgres: clear report %q: %w", callID, err)
	}

	const ins = `
		INSERT INTO call_segments (call_id, position, speaker, timestamp_ms, file)
		VALUES ($1, $2, $3, $4, $5)`
	for i, seg := range segments {
		if _, err := s.db.Exec(ctx, ins, callID, i, string(seg.Speaker), seg.TimestampMs, seg.File); err != nil {
			return fmt.Errorf("postgres: save report %q segment %d: %w", callID, i, err)
		}
	}
	return nil
}

// Report returns the stored segments for callID in report order, or nil when
// no report exists.
func (s *ReportStore) Report(ctx context.Context, callID string) ([]call.Segment, error) {
	const query = `
		SELECT speaker, timestamp_ms, file
		FROM call_segments
		WHERE call_id = $1
		ORDER BY position`
	rows, err := s.db.Query(ctx, query, callID)
	if err != nil {
		return nil, fmt.Errorf("postgres: load report %q: %w", callID, err)
	}
	defer rows.Close()

	var segments []call.Segment
	for rows.Next() {
		var (
			speaker string
			seg     call.Segment
		)
		if err := rows.Scan(&speaker, &seg.TimestampMs, &seg.File); err != nil {
			return nil, fmt.Errorf("postgres: scan report %q: %w", callID, err)
		}
		seg.Speaker = call.Speaker(speaker)
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load report %q: %w", callID, err)
	}
	return segments, nil
}
