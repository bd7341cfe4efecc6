// Package dbopen opens the SQLite databases axquery writes to with a fixed
// set of pragmas applied via EXEC, so any database/sql SQLite driver works.
//
// Pragmas:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("axquery.db", dbopen.WithSchema(schema))
//
// In tests:
//
//	db := dbopen.OpenMemory(t)
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type options struct {
	driver      string
	busyTimeout int
	synchronous string
	mkdirAll    bool
	schemas     []string
}

// Option customises Open.
type Option func(*options)

// WithDriver sets the database/sql driver name. Default: "sqlite".
func WithDriver(name string) Option { return func(o *options) { o.driver = name } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeout = ms } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// WithSchema queues SQL executed after the pragmas.
func WithSchema(s string) Option { return func(o *options) { o.schemas = append(o.schemas, s) } }

// Open opens the database at path. The caller blank-imports the driver.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{driver: "sqlite", busyTimeout: 10_000, synchronous: "NORMAL"}
	for _, fn := range opts {
		fn(&o)
	}

	if o.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", o.synchronous),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}

	for _, s := range o.schemas {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: exec schema: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory database for tests, pinned to one connection
// (each ":memory:" connection is a separate database) and closed on cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
