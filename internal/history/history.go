// Package history keeps a SQLite journal of maintenance runs so operators can
// audit what the daemon did to each root and when.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded per run.
const (
	ActionClean = "CLEAN"
	ActionPrune = "PRUNE"
)

// DB manages the SQLite database for run history
type DB struct {
	db *sql.DB
}

// RunRecord represents one maintenance action applied to a root.
type RunRecord struct {
	ID        int64
	Timestamp time.Time
	Root      string
	Action    string
	Failures  int   // Unremovable entries left behind (CLEAN) or failed prunes (PRUNE)
	Duration  int64 // Milliseconds
	Error     string
}

// Stats aggregates run history over a window.
type Stats struct {
	Runs          int
	TotalFailures int
	CleanRuns     int
	PruneRuns     int
}

// Open creates the database connection and initializes the schema.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Exec instead of Ping so the file is created immediately
	if _, err = db.Exec("SELECT 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL for concurrent readers while the daemon writes
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}

	h := &DB{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		root TEXT NOT NULL,
		action TEXT NOT NULL,
		failures INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordRun inserts one run record.
func (h *DB) RecordRun(rec RunRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := h.db.Exec(
		`INSERT INTO runs (timestamp, root, action, failures, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ts, rec.Root, rec.Action, rec.Failures, rec.Duration, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns the n most recent runs, newest first.
func (h *DB) RecentRuns(n int) ([]RunRecord, error) {
	rows, err := h.db.Query(
		`SELECT id, timestamp, root, action, failures, duration_ms, error
		 FROM runs ORDER BY timestamp DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// RunsForRoot returns the n most recent runs for one root, newest first.
func (h *DB) RunsForRoot(root string, n int) ([]RunRecord, error) {
	rows, err := h.db.Query(
		`SELECT id, timestamp, root, action, failures, duration_ms, error
		 FROM runs WHERE root = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, root, n)
	if err != nil {
		return nil, fmt.Errorf("query runs for root: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// StatsSince aggregates runs over the past days.
func (h *DB) StatsSince(days int) (Stats, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	row := h.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(failures), 0),
		        COALESCE(SUM(action = ?), 0),
		        COALESCE(SUM(action = ?), 0)
		 FROM runs WHERE timestamp >= ?`,
		ActionClean, ActionPrune, cutoff)

	var s Stats
	if err := row.Scan(&s.Runs, &s.TotalFailures, &s.CleanRuns, &s.PruneRuns); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return s, nil
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Root, &r.Action, &r.Failures, &r.Duration, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}
