// Package history optionally persists validation runs to SQLite so
// deploy-to-deploy regressions can be traced. It is entirely opt-in: a run
// without a history path touches no database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hypesilico/apicheck/internal/report"
	"github.com/hypesilico/apicheck/internal/validator"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	base_url   TEXT NOT NULL,
	passed     INTEGER NOT NULL,
	failed     INTEGER NOT NULL,
	skipped    INTEGER NOT NULL,
	total      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS failures (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name    TEXT NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
`

// Store records run summaries and their failed checks.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the history database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Run is one persisted validation run.
type Run struct {
	ID        int64
	StartedAt time.Time
	BaseURL   string
	Summary   report.Summary
}

// RecordRun stores the summary and one row per failed check.
func (s *Store) RecordRun(ctx context.Context, startedAt time.Time, baseURL string, summary report.Summary, results []validator.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, base_url, passed, failed, skipped, total) VALUES (?, ?, ?, ?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339), baseURL,
		summary.Passed, summary.Failed, summary.Skipped, summary.Total)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, r := range results {
		if r.Passed {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, name, message) VALUES (?, ?, ?)`,
			runID, r.Name, r.Message); err != nil {
			return 0, fmt.Errorf("insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, base_url, passed, failed, skipped, total
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.BaseURL,
			&r.Summary.Passed, &r.Summary.Failed, &r.Summary.Skipped, &r.Summary.Total); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, ts)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunFailures returns the failed checks recorded for a run.
func (s *Store) RunFailures(ctx context.Context, runID int64) ([]validator.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, message FROM failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []validator.Result
	for rows.Next() {
		var r validator.Result
		if err := rows.Scan(&r.Name, &r.Message); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
