package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nao1215/sitemapcrawl/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the name of the database file inside the data directory.
const FileName = "sitemapcrawl.db"

// ErrRunNotFound is returned when no archived run matches an ID.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRunID is returned when an ID prefix matches several runs.
var ErrAmbiguousRunID = errors.New("run ID prefix matches more than one run")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CrawlDB is the SQLite archive of crawl runs.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the archive in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, os.ErrNotExist)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per finished crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		url_count INTEGER NOT NULL,
		sitemap_count INTEGER NOT NULL,
		failed_count INTEGER NOT NULL,
		capped INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Every sitemap document claimed during a run
	CREATE TABLE IF NOT EXISTS sitemaps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		parent TEXT,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		url_count INTEGER NOT NULL,
		added_count INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sitemaps_run ON sitemaps(run_id);
	CREATE INDEX IF NOT EXISTS idx_sitemaps_url ON sitemaps(url);

	-- Collected leaf URLs
	CREATE TABLE IF NOT EXISTS urls (
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		PRIMARY KEY (run_id, url)
	);
	`

	ctx := context.Background()
	if _, err := cdb.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	// Archives created before added_count existed lack the column.
	return cdb.addColumnIfMissing(ctx, "sitemaps", "added_count", "INTEGER NOT NULL DEFAULT 0")
}

// addColumnIfMissing adds column to table unless it is already there.
func (cdb *CrawlDB) addColumnIfMissing(ctx context.Context, table, column, definition string) error {
	rows, err := cdb.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	//nolint:gosec // table, column and definition are constants
	_, err = cdb.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	if err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	return nil
}

// SaveRun stores a finished run in one transaction.
func (cdb *CrawlDB) SaveRun(ctx context.Context, report *model.RunReport) (err error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	summary := report.Summary()

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, finished_at, url_count, sitemap_count, failed_count, capped, cancelled, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		summary.URLsCollected,
		summary.SitemapsChecked,
		summary.SitemapsFailed,
		boolToInt(report.Capped),
		boolToInt(report.Cancelled),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	sitemapStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO sitemaps (run_id, url, depth, parent, status, attempts, url_count, added_count, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sitemap insert: %w", err)
	}
	defer sitemapStmt.Close()

	for _, rec := range report.Sitemaps {
		if _, err = sitemapStmt.ExecContext(ctx,
			report.ID, rec.URL, rec.Depth, rec.Parent, rec.Status.String(), rec.Attempts, rec.URLCount, rec.Added, rec.Error,
		); err != nil {
			return fmt.Errorf("failed to save sitemap %s: %w", rec.URL, err)
		}
	}

	urlStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO urls (run_id, url) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare url insert: %w", err)
	}
	defer urlStmt.Close()

	for _, u := range report.URLs {
		if _, err = urlStmt.ExecContext(ctx, report.ID, u); err != nil {
			return fmt.Errorf("failed to save url: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun loads an archived run, URLs included.
// It returns ErrRunNotFound when id is unknown.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*model.RunReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}

	urls, err := cdb.RunURLs(ctx, id)
	if err != nil {
		return nil, err
	}
	report.URLs = urls

	return &report, nil
}

// RunURLs returns the sorted URLs collected by a run.
func (cdb *CrawlDB) RunURLs(ctx context.Context, id string) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT url FROM urls WHERE run_id = ? ORDER BY url`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// ResolveRunID expands a unique prefix of a run ID to the full ID.
func (cdb *CrawlDB) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", ErrRunNotFound
	case 1:
		return ids[0], nil
	default:
		return "", ErrAmbiguousRunID
	}
}

// RunMetadata is the summary row of an archived run.
type RunMetadata struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	URLCount       int
	SitemapCount   int
	FailedSitemaps int
	Capped         bool
	Cancelled      bool
}

// ListRuns returns archived runs, newest first. limit <= 0 returns all.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, started_at, finished_at, url_count, sitemap_count, failed_count, capped, cancelled
	FROM runs
	ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMetadata
	for rows.Next() {
		var (
			meta              RunMetadata
			started, finished string
			capped, cancelled int
		)
		if err := rows.Scan(&meta.ID, &started, &finished, &meta.URLCount, &meta.SitemapCount,
			&meta.FailedSitemaps, &capped, &cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished)
		meta.Capped = capped != 0
		meta.Cancelled = cancelled != 0
		runs = append(runs, meta)
	}

	return runs, rows.Err()
}

// SitemapHistory is one past outcome for a sitemap URL.
type SitemapHistory struct {
	RunID     string
	StartedAt time.Time
	Status    model.SitemapStatus
	URLCount  int
	Added     int
	Error     string
}

// GetSitemapHistory returns the archived outcomes for one sitemap URL,
// newest first.
func (cdb *CrawlDB) GetSitemapHistory(ctx context.Context, sitemapURL string) ([]SitemapHistory, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT s.run_id, r.started_at, s.status, s.url_count, s.added_count, COALESCE(s.error, '')
	FROM sitemaps s JOIN runs r ON r.id = s.run_id
	WHERE s.url = ?
	ORDER BY r.started_at DESC
	`, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get sitemap history: %w", err)
	}
	defer rows.Close()

	var history []SitemapHistory
	for rows.Next() {
		var (
			h       SitemapHistory
			started string
			status  string
		)
		if err := rows.Scan(&h.RunID, &started, &status, &h.URLCount, &h.Added, &h.Error); err != nil {
			return nil, fmt.Errorf("failed to scan sitemap history: %w", err)
		}
		h.StartedAt = parseTimestamp(started)
		h.Status = model.ParseSitemapStatus(status)
		history = append(history, h)
	}

	return history, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
