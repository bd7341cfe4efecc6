// CLAUDE:SUMMARY SQLite journal of executed selector queries (query_runs table): Record and Recent.
// Package journal records every selector query axquery executes.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/axquery/dbopen"
	"github.com/hazyhaar/axquery/idgen"
)

// Schema for the query_runs table.
const Schema = `
CREATE TABLE IF NOT EXISTS query_runs (
	id          TEXT PRIMARY KEY,
	page_url    TEXT NOT NULL DEFAULT '',
	selector    TEXT NOT NULL,
	op          TEXT NOT NULL,
	matches     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_runs_created ON query_runs(created_at);
`

// Run is one executed query.
type Run struct {
	ID        string        `json:"id"`
	PageURL   string        `json:"page_url"`
	Selector  string        `json:"selector"`
	Op        string        `json:"op"`
	Matches   int           `json:"matches"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Journal stores runs in SQLite.
type Journal struct {
	db    *sql.DB
	newID idgen.Generator
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{db: db, newID: idgen.Prefixed("run_", idgen.Default)}, nil
}

// New wraps an already opened database and applies the schema.
func New(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db, newID: idgen.Prefixed("run_", idgen.Default)}, nil
}

// Record inserts r. Empty ID and zero CreatedAt are filled in.
func (j *Journal) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = j.newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := dbopen.Exec(ctx, j.db, `
		INSERT INTO query_runs (id, page_url, selector, op, matches, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PageURL, r.Selector, r.Op, r.Matches, r.Error,
		r.Duration.Milliseconds(), r.CreatedAt.UnixMilli())
	if err != nil {
		return r, fmt.Errorf("journal: record: %w", err)
	}
	return r, nil
}

// Recent returns the latest runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, page_url, selector, op, matches, error, duration_ms, created_at
		FROM query_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var durMs, createdMs int64
		if err := rows.Scan(&r.ID, &r.PageURL, &r.Selector, &r.Op, &r.Matches,
			&r.Error, &durMs, &createdMs); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		r.Duration = time.Duration(durMs) * time.Millisecond
		r.CreatedAt = time.UnixMilli(createdMs)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }
