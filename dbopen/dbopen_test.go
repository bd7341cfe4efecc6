package dbopen_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/axquery/dbopen"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	var bt int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&bt); err != nil {
		t.Fatal(err)
	}
	if bt != 10_000 {
		t.Fatalf("busy_timeout = %d, want 10000", bt)
	}
}

func TestWithBusyTimeout(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithBusyTimeout(2500))
	var bt int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&bt); err != nil {
		t.Fatal(err)
	}
	if bt != 2500 {
		t.Fatalf("busy_timeout = %d, want 2500", bt)
	}
}

func TestWithSchema_MkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "x.db")
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(),
		dbopen.WithSchema("CREATE TABLE t (v TEXT)"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := dbopen.Exec(context.Background(), db, "INSERT INTO t VALUES (?)", "x"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT count(*) FROM t").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("rows: got %d, want 1", n)
	}
}

func TestBadSchema(t *testing.T) {
	if _, err := dbopen.Open(":memory:", dbopen.WithSchema("NOT SQL")); err == nil {
		t.Fatal("expected schema error")
	}
}

func TestIsBusy(t *testing.T) {
	cases := map[string]bool{
		"SQLITE_BUSY":               true,
		"database is locked (5)":    true,
		"no such table: query_runs": false,
	}
	for msg, want := range cases {
		if got := dbopen.IsBusy(errors.New(msg)); got != want {
			t.Errorf("IsBusy(%q): got %v, want %v", msg, got, want)
		}
	}
	if dbopen.IsBusy(nil) {
		t.Error("IsBusy(nil) must be false")
	}
}
