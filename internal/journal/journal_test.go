package journal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/axquery/dbopen"
)

func TestRecordRecent(t *testing.T) {
	db := dbopen.OpenMemory(t)
	j, err := New(db)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	for i, sel := range []string{"aria/Submit&button", "button", "aria/&link"} {
		_, err := j.Record(ctx, Run{
			PageURL:   "https://example.test/",
			Selector:  sel,
			Op:        "all",
			Matches:   i,
			Duration:  time.Duration(i+1) * time.Millisecond,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	runs, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs: got %d, want 2", len(runs))
	}
	if runs[0].Selector != "aria/&link" || runs[1].Selector != "button" {
		t.Fatalf("order: got %q, %q", runs[0].Selector, runs[1].Selector)
	}
	if runs[0].Matches != 2 || runs[0].Duration != 3*time.Millisecond {
		t.Fatalf("run: got %+v", runs[0])
	}
	if !strings.HasPrefix(runs[0].ID, "run_") {
		t.Fatalf("id: got %q, want run_ prefix", runs[0].ID)
	}
	if !runs[0].CreatedAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("created_at: got %s", runs[0].CreatedAt)
	}
}

func TestRecordError(t *testing.T) {
	db := dbopen.OpenMemory(t)
	j, err := New(db)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := j.Record(ctx, Run{Selector: "aria/x", Op: "one", Error: "boom"}); err != nil {
		t.Fatal(err)
	}
	runs, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Error != "boom" {
		t.Fatalf("runs: got %+v", runs)
	}
}

func TestRecentEmpty(t *testing.T) {
	j, err := New(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	runs, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if runs == nil || len(runs) != 0 {
		t.Fatalf("runs: got %#v, want empty non-nil", runs)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()
	if _, err := j.Record(context.Background(), Run{Selector: "a", Op: "count"}); err != nil {
		t.Fatal(err)
	}
}
