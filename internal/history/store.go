// Package history implements a persistent SQLite-backed run journal. It uses
// modernc.org/sqlite (pure Go, no CGO) with WAL mode. The journal is
// diagnostics only: the scheduler never reads it, so losing it costs nothing
// but hindsight.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000 // milliseconds

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one journal row: a single job invocation and its outcome.
type Run struct {
	ID         int64
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
	Screenshot string
}

// Duration is the run's wall-clock time.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Store is a SQLite-backed run journal.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the journal at path. The database uses
// WAL mode, a 5 s busy timeout, and a single connection (SQLite serialises
// writes). The schema is migrated automatically.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("history: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	job         TEXT    NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	status      TEXT    NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	screenshot  TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_job_started ON runs(job, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Record appends one run to the journal.
func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (job, started_at, finished_at, status, error, screenshot)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.Job,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Status,
		run.Error,
		run.Screenshot,
	)
	if err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// Recent returns the newest n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job, started_at, finished_at, status, error, screenshot
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// LastByJob returns each job's most recent run.
func (s *Store) LastByJob(ctx context.Context) (map[string]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job, started_at, finished_at, status, error, screenshot
		 FROM runs
		 WHERE id IN (SELECT MAX(id) FROM runs GROUP BY job)`)
	if err != nil {
		return nil, fmt.Errorf("history: last runs: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Run, len(runs))
	for _, run := range runs {
		out[run.Job] = run
	}
	return out, nil
}

// Prune deletes runs older than the retention window. Returns the number of
// rows removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune count: %w", err)
	}
	return n, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var out []Run
	for rows.Next() {
		var (
			run                   Run
			startedMs, finishedMs int64
		)
		if err := rows.Scan(&run.ID, &run.Job, &startedMs, &finishedMs, &run.Status, &run.Error, &run.Screenshot); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedMs)
		run.FinishedAt = time.UnixMilli(finishedMs)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return out, nil
}
