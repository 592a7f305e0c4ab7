// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records index-building runs and the outcome of every
// dataset they touched in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/neotoma-env/internal/envindex"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// timeLayout has fixed-width fractional seconds so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and creates the
// schema if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			index_path TEXT NOT NULL,
			status TEXT NOT NULL,
			collected INTEGER NOT NULL DEFAULT 0,
			added INTEGER NOT NULL DEFAULT 0,
			already_indexed INTEGER NOT NULL DEFAULT 0,
			duplicate INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			no_data INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			empty_environment INTEGER NOT NULL DEFAULT 0,
			environments INTEGER NOT NULL DEFAULT 0,
			distinct_ids INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS fetches (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			dataset_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			environment TEXT,
			detail TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_run_id ON fetches(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_dataset_id ON fetches(dataset_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Run is one recorded index-building run.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	IndexPath    string
	Status       string
	Collected    int
	Summary      envindex.Summary
	Environments int
	DistinctIDs  int
}

// Begin records the start of a run and returns it with a fresh id.
func (s *Store) Begin(ctx context.Context, indexPath string, startedAt time.Time) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		StartedAt: startedAt.UTC(),
		IndexPath: indexPath,
		Status:    StatusRunning,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, index_path, status) VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout), run.IndexPath, run.Status,
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// Finish stores the final counts of run and one row per item outcome.
func (s *Store) Finish(ctx context.Context, run Run, items []envindex.ItemResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	sum := run.Summary
	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, collected = ?,
			added = ?, already_indexed = ?, duplicate = ?, failed = ?,
			no_data = ?, errors = ?, empty_environment = ?,
			environments = ?, distinct_ids = ?
		 WHERE id = ?`,
		run.FinishedAt.UTC().Format(timeLayout), run.Status, run.Collected,
		sum.Added, sum.AlreadyIndexed, sum.Duplicate, sum.Failed,
		sum.NoData, sum.Errors, sum.EmptyEnvironment,
		run.Environments, run.DistinctIDs,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fetches (run_id, position, dataset_id, outcome, environment, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		detail := ""
		if item.Err != nil {
			detail = item.Err.Error()
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, i+1, item.ID.String(), item.Outcome.String(), item.Environment, detail,
		); err != nil {
			return fmt.Errorf("inserting outcome for %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, COALESCE(finished_at, ''), index_path, status, collected,
			added, already_indexed, duplicate, failed, no_data, errors, empty_environment,
			environments, distinct_ids
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.IndexPath, &r.Status, &r.Collected,
			&r.Summary.Added, &r.Summary.AlreadyIndexed, &r.Summary.Duplicate, &r.Summary.Failed,
			&r.Summary.NoData, &r.Summary.Errors, &r.Summary.EmptyEnvironment,
			&r.Environments, &r.DistinctIDs); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(timeLayout, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Fetch is a stored item outcome.
type Fetch struct {
	Position    int    `json:"position" yaml:"position"`
	DatasetID   string `json:"dataset_id" yaml:"dataset_id"`
	Outcome     string `json:"outcome" yaml:"outcome"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Detail      string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Fetches returns the item outcomes recorded for runID in processing order.
// An empty outcome filter returns all of them.
func (s *Store) Fetches(ctx context.Context, runID, outcome string) ([]Fetch, error) {
	query := `SELECT position, dataset_id, outcome, COALESCE(environment, ''), COALESCE(detail, '')
		FROM fetches WHERE run_id = ?`
	args := []any{runID}
	if outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, outcome)
	}
	query += ` ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fetches: %w", err)
	}
	defer rows.Close()

	var out []Fetch
	for rows.Next() {
		var f Fetch
		if err := rows.Scan(&f.Position, &f.DatasetID, &f.Outcome, &f.Environment, &f.Detail); err != nil {
			return nil, fmt.Errorf("scanning fetch: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
