package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/naverpost/internal/config"
	"github.com/ibeckermayer/naverpost/internal/types"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// DefaultPath returns the run history database inside the cache directory.
func DefaultPath() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "naverpost.db"), nil
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	// Times are written in a sortable layout so ORDER BY started_at holds.
	db, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		success BOOLEAN NOT NULL,
		failed_step TEXT,
		final_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		step TEXT NOT NULL,
		ok BOOLEAN NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		duration_ns INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run and its step results. Times are stored
// in UTC so ordering survives zone and DST changes.
func (s *Store) SaveRun(r *types.RunReport) error {
	if r.ID == "" {
		return fmt.Errorf("run has no id")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, title, started_at, finished_at, success, failed_step, final_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			success = excluded.success,
			failed_step = excluded.failed_step,
			final_url = excluded.final_url
	`, r.ID, r.Title, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Success, string(r.FailedStep), r.FinalURL)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM steps WHERE run_id = ?`, r.ID); err != nil {
		return err
	}
	for i, st := range r.Steps {
		_, err := tx.Exec(`
			INSERT INTO steps (run_id, seq, step, ok, error, started_at, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, r.ID, i, string(st.Step), st.OK, st.Error, st.StartedAt.UTC(), int64(st.Duration))
		if err != nil {
			return fmt.Errorf("failed to save step %s: %w", st.Step, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, title, started_at, finished_at, success, failed_step, final_url
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var failedStep string
		if err := rows.Scan(&r.ID, &r.Title, &r.StartedAt, &r.FinishedAt, &r.Success, &failedStep, &r.FinalURL); err != nil {
			return nil, err
		}
		r.FailedStep = types.StepName(failedStep)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads a full report, step results included. The screenshot is not
// stored in the database.
func (s *Store) GetRun(id string) (*types.RunReport, error) {
	var r types.RunReport
	var failedStep string
	err := s.db.QueryRow(`
		SELECT id, title, started_at, finished_at, success, failed_step, final_url
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Title, &r.StartedAt, &r.FinishedAt, &r.Success, &failedStep, &r.FinalURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	r.FailedStep = types.StepName(failedStep)

	rows, err := s.db.Query(`
		SELECT step, ok, error, started_at, duration_ns
		FROM steps WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st types.StepResult
		var name string
		var durationNS int64
		if err := rows.Scan(&name, &st.OK, &st.Error, &st.StartedAt, &durationNS); err != nil {
			return nil, err
		}
		st.Step = types.StepName(name)
		st.Duration = time.Duration(durationNS)
		r.Steps = append(r.Steps, st)
	}
	return &r, rows.Err()
}
