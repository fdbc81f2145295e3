package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"archivist/internal/journal"
	"archivist/internal/outcome"
)

func openStore(t *testing.T) (*journal.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestRecordAndListRuns(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	collector := outcome.NewCollector(3)
	collector.Succeeded(outcome.Success{Identifier: "File:A.jpg", Filename: "A.jpg", Credit: "A"})
	collector.FetchFailed(outcome.FetchFailure{Identifier: "File:B.jpg", Filename: "B.jpg", Err: errors.New("http 404 Not Found")})
	collector.ResolutionFailed(outcome.ResolutionFailure{Identifier: "File:C.jpg", Reason: outcome.ReasonNotFound, Err: errors.New("missing")})
	report := collector.Finalize()

	first := journal.RunFromReport("11111111-aaaa", "wikimedia-commons", base, base.Add(2*time.Second), "/tmp/dest", "/tmp/dest/README.md", report)
	if err := store.RecordRun(ctx, first, journal.ItemsFromReport(report)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	second := journal.Run{ID: "22222222-bbbb", Source: "wikimedia-commons", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour), DestDir: "/tmp/dest"}
	if err := store.RecordRun(ctx, second, nil); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Fatalf("unexpected run order: %+v", runs)
	}
	got := runs[1]
	if got.Status != outcome.StatusFetchError || got.Archived != 1 || got.Failed != 2 || got.Requested != 3 {
		t.Fatalf("unexpected run summary: %+v", got)
	}
	if got.Duration() != 2*time.Second || got.IndexPath != "/tmp/dest/README.md" {
		t.Fatalf("unexpected run details: %+v", got)
	}

	items, err := store.RunItems(ctx, first.ID)
	if err != nil {
		t.Fatalf("RunItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Result != journal.ResultArchived || items[1].Result != journal.ResultFetchFailed || items[2].Result != string(outcome.ReasonNotFound) {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestFindRunByPrefix(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"abc-1", "abd-2"} {
		if err := store.RecordRun(ctx, journal.Run{ID: id, Source: "wikimedia-commons", StartedAt: now, FinishedAt: now, DestDir: "/d"}, nil); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	run, err := store.FindRun(ctx, "abc")
	if err != nil || run == nil || run.ID != "abc-1" {
		t.Fatalf("FindRun(abc) = %+v, %v", run, err)
	}
	if _, err := store.FindRun(ctx, "ab"); err == nil {
		t.Fatal("expected ambiguity error")
	}
	run, err = store.FindRun(ctx, "zzz")
	if err != nil || run != nil {
		t.Fatalf("FindRun(zzz) = %+v, %v", run, err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	store, path := openStore(t)
	now := time.Now()
	if err := store.RecordRun(context.Background(), journal.Run{ID: "r1", Source: "s", StartedAt: now, FinishedAt: now, DestDir: "/d"}, nil); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	_ = store.Close()

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.RecentRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentRuns after reopen = %v, %v", runs, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	store, path := openStore(t)
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := journal.Open(path); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestRecordRunRequiresID(t *testing.T) {
	store, _ := openStore(t)
	if err := store.RecordRun(context.Background(), journal.Run{}, nil); err == nil {
		t.Fatal("expected error for empty run id")
	}
}
