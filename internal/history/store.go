// Package history persists task runs in a local SQLite database so the CLI can
// show what ran, when, and how it ended.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded task execution.
type Run struct {
	ID         string
	Task       string
	Subject    string // ant target or release tag
	Outcome    string // success|failed|canceled
	Failure    string // build failure kind, when any
	ExitCode   int
	StartedAt  time.Time
	Duration   time.Duration
	Metadata   map[string]string
	RecordedAt time.Time
}

// Store is the persistence contract used by tasks.
type Store interface {
	Record(ctx context.Context, run Run) error
	List(ctx context.Context, task string, limit int) ([]Run, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating when needed) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases stable across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS task_runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		task TEXT NOT NULL,
		subject TEXT NOT NULL,
		outcome TEXT NOT NULL,
		failure TEXT NOT NULL DEFAULT '',
		exit_code INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		metadata TEXT,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_task_runs_task ON task_runs(task);
	CREATE INDEX IF NOT EXISTS idx_task_runs_started ON task_runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends a run.
func (s *SQLiteStore) Record(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if len(run.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(run.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}
	if run.RecordedAt.IsZero() {
		run.RecordedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_runs (id, task, subject, outcome, failure, exit_code, started_at, duration_ms, metadata, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Task, run.Subject, run.Outcome, run.Failure, run.ExitCode,
		run.StartedAt.UnixMilli(), run.Duration.Milliseconds(), metadataJSON, run.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert task run: %w", err)
	}
	return nil
}

// List returns the most recent runs first. An empty task matches all tasks;
// limit <= 0 means no limit.
func (s *SQLiteStore) List(ctx context.Context, task string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, task, subject, outcome, failure, exit_code, started_at, duration_ms, metadata, recorded_at FROM task_runs`
	var args []any
	if task != "" {
		query += ` WHERE task = ?`
		args = append(args, task)
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                       Run
			startedMS, durMS, recMS int64
			metadataJSON            []byte
		)
		if err := rows.Scan(&r.ID, &r.Task, &r.Subject, &r.Outcome, &r.Failure, &r.ExitCode, &startedMS, &durMS, &metadataJSON, &recMS); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedMS)
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.RecordedAt = time.UnixMilli(recMS)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// NoopStore discards runs; used when history is disabled.
type NoopStore struct{}

func (NoopStore) Record(context.Context, Run) error { return nil }

func (NoopStore) List(context.Context, string, int) ([]Run, error) { return nil, nil }

func (NoopStore) Close() error { return nil }
