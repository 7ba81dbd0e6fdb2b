package state_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"cbzmage/internal/state"
	"cbzmage/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := state.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if store.Path() != cfg.HistoryPath() {
		t.Fatalf("path = %q, want %q", store.Path(), cfg.HistoryPath())
	}

	// Reopening an initialised database must succeed.
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	again, err := state.OpenPath(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := state.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := state.OpenPath(path); !errors.Is(err, state.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRecordBookUpserts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, id := range []string{"run-1", "run-2"} {
		if err := store.BeginRun(ctx, state.Run{ID: id, Mode: "convert", Source: "/books", StartedAt: started}); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}

	first := state.BookRecord{
		RunID:       "run-1",
		PrimaryPath: "/books/vol1.azw3",
		Mode:        "convert",
		Name:        "Vol 1",
		SdCover:     true,
		SdImages:    5,
		Pages:       5,
		ArchivePath: "/out/Vol 1.cbz",
		CheckedAt:   started.Add(time.Minute),
	}
	if err := store.RecordBook(ctx, first); err != nil {
		t.Fatalf("RecordBook: %v", err)
	}
	second := first
	second.RunID = "run-2"
	second.SdCover = false
	second.HdCover = true
	second.HdImages, second.SdImages = 5, 0
	second.HDContainer = "/books/vol1.azw.res"
	second.ArchiveBytes = 4096
	second.CheckedAt = started.Add(time.Hour)
	if err := store.RecordBook(ctx, second); err != nil {
		t.Fatalf("RecordBook update: %v", err)
	}

	got, err := store.Book(ctx, "/books/vol1.azw3", "convert")
	if err != nil || got == nil {
		t.Fatalf("Book: %v %v", got, err)
	}
	if got.RunID != "run-2" || !got.HdCover || got.SdCover || got.HdImages != 5 || got.ArchiveBytes != 4096 {
		t.Fatalf("record not replaced: %+v", got)
	}
	if !got.CheckedAt.Equal(second.CheckedAt) {
		t.Fatalf("checked_at = %v, want %v", got.CheckedAt, second.CheckedAt)
	}

	missing, err := store.Book(ctx, "/books/vol1.azw3", "scan")
	if err != nil || missing != nil {
		t.Fatalf("expected no scan record, got %+v (%v)", missing, err)
	}
}

func TestRecentBooksOrderAndRuns(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := store.BeginRun(ctx, state.Run{ID: "r", Mode: "scan", Source: "/lib", StartedAt: base}); err != nil {
		t.Fatal(err)
	}
	for i, name := range []string{"a", "b", "c"} {
		rec := state.BookRecord{
			RunID:       "r",
			PrimaryPath: "/lib/" + name + ".azw3",
			Mode:        "scan",
			CheckedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if name == "b" {
			rec.ErrorMessage = "decode EXTH header: extended header (EXTH) missing"
		}
		if err := store.RecordBook(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.FinishRun(ctx, state.Run{ID: "r", FinishedAt: base.Add(time.Hour), Total: 3, Succeeded: 2, Failed: 1}); err != nil {
		t.Fatal(err)
	}

	books, err := store.RecentBooks(ctx, 2)
	if err != nil {
		t.Fatalf("RecentBooks: %v", err)
	}
	if len(books) != 2 || books[0].PrimaryPath != "/lib/c.azw3" || !books[1].Failed() {
		t.Fatalf("unexpected order %+v", books)
	}

	run, err := store.Run(ctx, "r")
	if err != nil || run == nil {
		t.Fatalf("Run: %v %v", run, err)
	}
	if run.Total != 3 || run.Succeeded != 2 || run.Failed != 1 || !run.FinishedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestRecordBookRequiresRun(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	err := store.RecordBook(context.Background(), state.BookRecord{
		RunID:       "missing",
		PrimaryPath: "/lib/x.azw3",
		Mode:        "convert",
	})
	if err == nil {
		t.Fatal("expected foreign key violation for unknown run")
	}
}
