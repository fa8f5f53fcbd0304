package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/sitemapcrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*CrawlDB, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	db, err := Open(tmpDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

func newTestReport(id string, started time.Time) *model.RunReport {
	report := model.NewRunReport(id)
	report.StartedAt = started
	report.FinishedAt = started.Add(2 * time.Second)
	report.Settings = model.RunSettings{MaxDepth: 5, MaxURLs: 100, Retries: 3, Workers: 4}
	report.Seeds = []string{"https://example.com/sitemap.xml"}
	report.URLs = []string{"https://example.com/a", "https://example.com/b"}
	report.Sitemaps = []model.SitemapRecord{
		{URL: "https://example.com/sitemap.xml", Status: model.StatusFetched, URLCount: 3, Added: 2, Attempts: 1},
		{
			URL:      "https://example.com/broken.xml",
			Depth:    1,
			Parent:   "https://example.com/sitemap.xml",
			Status:   model.StatusFailed,
			Attempts: 3,
			Error:    "fetch https://example.com/broken.xml: HTTP 500",
		},
	}
	report.Skipped["duplicate"] = 1
	return report
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected path %s, got %s", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false})
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected os.ErrNotExist, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := newTestReport("run-1", started)

	if err := db.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	if got.ID != want.ID {
		t.Errorf("expected ID %s, got %s", want.ID, got.ID)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("expected start %v, got %v", started, got.StartedAt)
	}
	if len(got.URLs) != 2 || got.URLs[0] != "https://example.com/a" {
		t.Errorf("unexpected URLs: %v", got.URLs)
	}
	if len(got.Sitemaps) != 2 {
		t.Fatalf("expected 2 sitemap records, got %d", len(got.Sitemaps))
	}
	if got.Sitemaps[1].Status != model.StatusFailed {
		t.Errorf("expected failed status, got %s", got.Sitemaps[1].Status)
	}
	if got.Skipped["duplicate"] != 1 {
		t.Errorf("expected skipped counts to survive, got %v", got.Skipped)
	}
	if got.Settings.Workers != 4 {
		t.Errorf("expected settings to survive, got %+v", got.Settings)
	}
}

func TestSaveRunDuplicateID(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	report := newTestReport("dup", time.Now())

	if err := db.SaveRun(ctx, report); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := db.SaveRun(ctx, report); err == nil {
		t.Fatal("expected error saving the same run twice")
	}

	// The failed transaction must not leave extra rows behind.
	urls, err := db.RunURLs(ctx, "dup")
	if err != nil {
		t.Fatalf("RunURLs failed: %v", err)
	}
	if len(urls) != 2 {
		t.Errorf("expected 2 URLs, got %d", len(urls))
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	if _, err := db.GetRun(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		report := newTestReport(id, base.Add(time.Duration(i)*time.Hour))
		if id == "new" {
			report.Capped = true
		}
		if err := db.SaveRun(ctx, report); err != nil {
			t.Fatalf("SaveRun %s failed: %v", id, err)
		}
	}

	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "new" || runs[2].ID != "old" {
		t.Errorf("expected newest first, got %s..%s", runs[0].ID, runs[2].ID)
	}
	if !runs[0].Capped || runs[1].Capped {
		t.Error("capped flag not stored per run")
	}
	if runs[0].URLCount != 2 || runs[0].SitemapCount != 2 || runs[0].FailedSitemaps != 1 {
		t.Errorf("unexpected counters: %+v", runs[0])
	}

	limited, err := db.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 run with limit, got %d", len(limited))
	}
}

func TestResolveRunID(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for _, id := range []string{"abc123", "abd456"} {
		if err := db.SaveRun(ctx, newTestReport(id, time.Now())); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	tests := []struct {
		name    string
		prefix  string
		want    string
		wantErr error
	}{
		{"full id", "abc123", "abc123", nil},
		{"unique prefix", "abd", "abd456", nil},
		{"ambiguous prefix", "ab", "", ErrAmbiguousRunID},
		{"unknown prefix", "zzz", "", ErrRunNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ResolveRunID(ctx, tt.prefix)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetSitemapHistory(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second"} {
		if err := db.SaveRun(ctx, newTestReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	history, err := db.GetSitemapHistory(ctx, "https://example.com/broken.xml")
	if err != nil {
		t.Fatalf("GetSitemapHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].RunID != "second" {
		t.Errorf("expected newest first, got %s", history[0].RunID)
	}
	if history[0].Status != model.StatusFailed || history[0].Error == "" {
		t.Errorf("unexpected entry: %+v", history[0])
	}

	fetched, err := db.GetSitemapHistory(ctx, "https://example.com/sitemap.xml")
	if err != nil {
		t.Fatalf("GetSitemapHistory failed: %v", err)
	}
	if len(fetched) != 2 || fetched[0].URLCount != 3 || fetched[0].Added != 2 {
		t.Errorf("expected 3 listed and 2 added URLs, got %+v", fetched)
	}
}

func TestOpenAddsMissingColumns(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	raw, err := sql.Open("sqlite", filepath.Join(dbDir, FileName))
	if err != nil {
		t.Fatalf("failed to open raw database: %v", err)
	}
	_, err = raw.ExecContext(context.Background(), `
	CREATE TABLE sitemaps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		parent TEXT,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		url_count INTEGER NOT NULL,
		error TEXT
	)`)
	if closeErr := raw.Close(); closeErr != nil {
		t.Fatal(closeErr)
	}
	if err != nil {
		t.Fatalf("failed to create old schema: %v", err)
	}

	db, err := Open(dbDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open old archive: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	report := newTestReport("migrated", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	if err := db.SaveRun(ctx, report); err != nil {
		t.Fatalf("SaveRun on old archive failed: %v", err)
	}

	history, err := db.GetSitemapHistory(ctx, "https://example.com/sitemap.xml")
	if err != nil {
		t.Fatalf("GetSitemapHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Added != 2 {
		t.Errorf("expected added count 2, got %+v", history)
	}

	// Opening again must not try to add the column twice.
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	again, err := Open(dbDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to reopen archive: %v", err)
	}
	_ = again.Close()
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		zero  bool
	}{
		{"2026-01-02T03:04:05.123456789Z", false},
		{"2026-01-02T03:04:05Z", false},
		{"2026-01-02 03:04:05", false},
		{"2026-01-02T03:04:05", false},
		{"not a time", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) zero = %v, want %v", tt.input, got.IsZero(), tt.zero)
			}
		})
	}
}
