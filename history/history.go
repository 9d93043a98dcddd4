// Package history records print jobs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown job ID.
var ErrNotFound = errors.New("job not found")

// Status values of a job row.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusError      = "error"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	started_at       INTEGER NOT NULL,
	finished_at      INTEGER,
	slices_total     INTEGER NOT NULL,
	slices_completed INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	error            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS jobs_started_at ON jobs(started_at);
`

// Job is one row of the jobs table.
type Job struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	SlicesTotal     int        `json:"slices_total"`
	SlicesCompleted int        `json:"slices_completed"`
	Status          string     `json:"status"`
	Error           string     `json:"error,omitempty"`
}

// Store is a job history backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Start records a new job in progress.
func (s *Store) Start(ctx context.Context, id string, slicesTotal int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, started_at, slices_total, status) VALUES (?, ?, ?, ?)`,
		id, s.now().UnixMilli(), slicesTotal, StatusInProgress)
	if err != nil {
		return fmt.Errorf("record job start: %w", err)
	}
	return nil
}

// Finish stores the outcome of a job.
func (s *Store) Finish(ctx context.Context, id string, slicesCompleted int, status string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET finished_at = ?, slices_completed = ?, status = ?, error = ? WHERE id = ?`,
		s.now().UnixMilli(), slicesCompleted, status, msg, id)
	if err != nil {
		return fmt.Errorf("record job finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record job finish %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns one job.
func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, slices_total, slices_completed, status, error
		 FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, err
}

// List returns the most recent jobs first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, slices_total, slices_completed, status, error
		 FROM jobs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job      Job
		started  int64
		finished sql.NullInt64
	)
	err := row.Scan(&job.ID, &started, &finished, &job.SlicesTotal, &job.SlicesCompleted, &job.Status, &job.Error)
	if err != nil {
		return Job{}, err
	}
	job.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		t := time.UnixMilli(finished.Int64)
		job.FinishedAt = &t
	}
	return job, nil
}
