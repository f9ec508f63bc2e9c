// Package ledger keeps a SQLite history of sort jobs: one row per job and
// one row per placed or skipped file.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/dicomsort/internal/sorter"
)

// Job statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusDryRun    = "dry-run"
	StatusFailed    = "failed"
)

var (
	// ErrJobNotFound is returned when no job matches an ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrAmbiguousID is returned when an ID prefix matches several jobs.
	ErrAmbiguousID = errors.New("job ID prefix matches more than one job")
)

// JobRecord is one row of the jobs table.
type JobRecord struct {
	ID           string
	SourceDir    string
	OutputRoot   string
	PatternName  string
	Pattern      string
	Mode         string
	Policy       string
	DryRun       bool
	Status       string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Scanned      int
	Planned      int
	Placed       int
	Skipped      int
	Failed       int
	Duration     time.Duration
	ErrorMessage string
}

// PlacementRecord is one placed file.
type PlacementRecord struct {
	ID           int64
	JobID        string
	Source       string
	RelativePath string
	Destination  string
	PlacedAt     time.Time
}

// SkipRecord is one skipped file.
type SkipRecord struct {
	ID     int64
	JobID  string
	Source string
	Reason string
	Detail string
}

// Store manages the SQLite job history database
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations. ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath, now: time.Now}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// RecordJob inserts a running job.
func (s *Store) RecordJob(ctx context.Context, job sorter.Job) error {
	query := `INSERT INTO jobs
		(id, source_dir, output_root, pattern_name, pattern, mode, policy, dry_run, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		job.ID, job.SourceDir, job.OutputRoot, job.PatternName, job.Pattern,
		string(job.Mode), string(job.Policy), job.DryRun, StatusRunning, job.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// RecordPlacement stores one placed file.
func (s *Store) RecordPlacement(ctx context.Context, jobID string, p sorter.Placement) error {
	query := `INSERT INTO placements (job_id, source, relative_path, destination, placed_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, jobID, p.Source, p.RelativePath, p.Destination, s.now().UTC())
	if err != nil {
		return fmt.Errorf("insert placement for job %s: %w", jobID, err)
	}
	return nil
}

// RecordSkip stores one skipped file.
func (s *Store) RecordSkip(ctx context.Context, jobID string, sk sorter.Skipped) error {
	detail := ""
	if sk.Err != nil {
		detail = sk.Err.Error()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO skipped_records (job_id, source, reason, detail) VALUES (?, ?, ?, ?)`,
		jobID, sk.Source, string(sk.Reason), detail)
	if err != nil {
		return fmt.Errorf("insert skipped record for job %s: %w", jobID, err)
	}
	return nil
}

// FinishJob stores the outcome of a job.
func (s *Store) FinishJob(ctx context.Context, result *sorter.Result) error {
	status := StatusCompleted
	errMsg := ""
	switch {
	case result.Err != nil:
		status = StatusFailed
		errMsg = result.Err.Error()
	case result.Job.DryRun:
		status = StatusDryRun
	}

	query := `UPDATE jobs SET
		status = ?, finished_at = ?, scanned = ?, planned = ?, placed = ?, skipped = ?,
		failed = ?, duration_ms = ?, error_message = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		status, s.now().UTC(), result.Scanned, len(result.Planned), len(result.Placed),
		len(result.Skipped), len(result.Failures), result.Duration.Milliseconds(), errMsg,
		result.Job.ID)
	if err != nil {
		return fmt.Errorf("update job %s: %w", result.Job.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", result.Job.ID, ErrJobNotFound)
	}
	return nil
}

// RecordResult stores a finished job with all its placements and skips in
// one transaction. Use it when events were not recorded as they happened.
func (s *Store) RecordResult(ctx context.Context, result *sorter.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	job := result.Job
	if _, err := tx.ExecContext(ctx, `INSERT INTO jobs
		(id, source_dir, output_root, pattern_name, pattern, mode, policy, dry_run, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourceDir, job.OutputRoot, job.PatternName, job.Pattern,
		string(job.Mode), string(job.Policy), job.DryRun, StatusRunning, job.StartedAt.UTC()); err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}

	placedAt := s.now().UTC()
	for _, p := range result.Placed {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO placements (job_id, source, relative_path, destination, placed_at) VALUES (?, ?, ?, ?, ?)`,
			job.ID, p.Source, p.RelativePath, p.Destination, placedAt); err != nil {
			return fmt.Errorf("insert placement for job %s: %w", job.ID, err)
		}
	}
	for _, sk := range result.Skipped {
		detail := ""
		if sk.Err != nil {
			detail = sk.Err.Error()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO skipped_records (job_id, source, reason, detail) VALUES (?, ?, ?, ?)`,
			job.ID, sk.Source, string(sk.Reason), detail); err != nil {
			return fmt.Errorf("insert skipped record for job %s: %w", job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit job %s: %w", job.ID, err)
	}
	return s.FinishJob(ctx, result)
}

const jobColumns = `id, source_dir, output_root, COALESCE(pattern_name, ''), pattern, mode, policy,
	dry_run, status, started_at, finished_at, scanned, planned, placed, skipped, failed,
	COALESCE(duration_ms, 0), COALESCE(error_message, '')`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*JobRecord, error) {
	var (
		j          JobRecord
		finishedAt sql.NullTime
		durationMs int64
	)
	err := row.Scan(&j.ID, &j.SourceDir, &j.OutputRoot, &j.PatternName, &j.Pattern, &j.Mode, &j.Policy,
		&j.DryRun, &j.Status, &j.StartedAt, &finishedAt, &j.Scanned, &j.Planned, &j.Placed, &j.Skipped,
		&j.Failed, &durationMs, &j.ErrorMessage)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		j.FinishedAt = &t
	}
	j.Duration = time.Duration(durationMs) * time.Millisecond
	return &j, nil
}

// ListJobs returns the most recent jobs first. limit <= 0 returns all jobs.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY started_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// GetJob returns the job with the given ID. A unique ID prefix is accepted.
func (s *Store) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("empty job ID: %w", ErrJobNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY (id = ?) DESC LIMIT 2`,
		id, len(id), id, id)
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	defer rows.Close()

	var matches []*JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		matches = append(matches, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%s: %w", id, ErrJobNotFound)
	case matches[0].ID == id || len(matches) == 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", id, ErrAmbiguousID)
	}
}

// Placements returns the files placed by a job in placement order.
func (s *Store) Placements(ctx context.Context, jobID string) ([]*PlacementRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, source, relative_path, destination, placed_at
		 FROM placements WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	var out []*PlacementRecord
	for rows.Next() {
		p := &PlacementRecord{}
		if err := rows.Scan(&p.ID, &p.JobID, &p.Source, &p.RelativePath, &p.Destination, &p.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate placements: %w", err)
	}
	return out, nil
}

// Skips returns the files a job skipped.
func (s *Store) Skips(ctx context.Context, jobID string) ([]*SkipRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, source, reason, COALESCE(detail, '')
		 FROM skipped_records WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query skipped records: %w", err)
	}
	defer rows.Close()

	var out []*SkipRecord
	for rows.Next() {
		sk := &SkipRecord{}
		if err := rows.Scan(&sk.ID, &sk.JobID, &sk.Source, &sk.Reason, &sk.Detail); err != nil {
			return nil, fmt.Errorf("scan skipped record: %w", err)
		}
		out = append(out, sk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skipped records: %w", err)
	}
	return out, nil
}
