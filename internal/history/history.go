// Package history keeps a local SQLite log of newsletter runs.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run kinds.
const (
	KindWeekly     = "weekly"
	KindBackfill   = "backfill"
	KindEmailDraft = "email-draft"
	KindEmailSend  = "email-send"
	KindSubscribe  = "subscribe"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one invocation of a pipeline entry point.
type Run struct {
	ID         string
	Kind       string
	Sequence   int
	Artifact   string
	Status     string
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// QueryOpts filters List.
type QueryOpts struct {
	Kind   string
	Status string
	Since  time.Time
	Limit  int
}

// Stats summarizes the stored runs.
type Stats struct {
	Runs        int
	Failed      int
	LastSuccess time.Time
	SizeBytes   int64
}

type DB struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	db := &DB{readDB: readDB, writeDB: writeDB}
	if err := db.init(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) init() error {
	_, err := db.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			sequence    INTEGER NOT NULL DEFAULT 0,
			artifact    TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			detail      TEXT NOT NULL DEFAULT '',
			started_at  DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	var errs []error
	if db.readDB != nil {
		errs = append(errs, db.readDB.Close())
	}
	if db.writeDB != nil {
		errs = append(errs, db.writeDB.Close())
	}
	return errors.Join(errs...)
}

// Record stores r, assigning an id when it has none, and returns the id.
func (db *DB) Record(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = r.FinishedAt
	}
	_, err := db.writeDB.Exec(`
		INSERT INTO runs (id, kind, sequence, artifact, status, detail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			artifact = excluded.artifact,
			detail = excluded.detail,
			finished_at = excluded.finished_at
	`, r.ID, r.Kind, r.Sequence, r.Artifact, r.Status, r.Detail, r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("recording run %s: %w", r.ID, err)
	}
	if r.Status == StatusOK {
		if err := db.setMeta("last_success", r.FinishedAt.UTC().Format(time.RFC3339)); err != nil {
			return r.ID, err
		}
	}
	return r.ID, nil
}

// List returns runs newest first.
func (db *DB) List(opts QueryOpts) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	if !opts.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, opts.Since.UTC())
	}

	query := "SELECT id, kind, sequence, artifact, status, detail, started_at, finished_at FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := db.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Kind, &r.Sequence, &r.Artifact, &r.Status, &r.Detail, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes runs that started more than olderThan ago.
func (db *DB) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC()
	res, err := db.writeDB.Exec("DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if _, err := db.writeDB.Exec("VACUUM"); err != nil {
			return n, fmt.Errorf("vacuuming: %w", err)
		}
	}
	return n, nil
}

// Stats counts runs and reports the file size of dbPath.
func (db *DB) Stats(dbPath string) (Stats, error) {
	var s Stats
	err := db.readDB.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) FROM runs
	`, StatusFailed).Scan(&s.Runs, &s.Failed)
	if err != nil {
		return s, fmt.Errorf("counting runs: %w", err)
	}
	if v, err := db.meta("last_success"); err == nil {
		s.LastSuccess, _ = time.Parse(time.RFC3339, v)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return s, fmt.Errorf("stat %s: %w", dbPath, err)
	}
	s.SizeBytes = info.Size()
	return s, nil
}

func (db *DB) meta(key string) (string, error) {
	var value string
	err := db.readDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	return value, err
}

func (db *DB) setMeta(key, value string) error {
	_, err := db.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
