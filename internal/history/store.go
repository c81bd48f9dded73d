package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"rarpack/internal/faults"
	"rarpack/internal/logging"
	"rarpack/internal/pool"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusAborted   = "aborted"
)

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path is the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RunStart describes a run at dispatch time.
type RunStart struct {
	OutputMode  string
	Destination string
	Sources     []string
	Threads     int
	Total       int
	StartedAt   time.Time
}

// Run is one ledger row.
type Run struct {
	ID          string    `json:"id" yaml:"id"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Status      string    `json:"status" yaml:"status"`
	OutputMode  string    `json:"output_mode" yaml:"output_mode"`
	Destination string    `json:"destination,omitempty" yaml:"destination,omitempty"`
	Sources     []string  `json:"sources" yaml:"sources"`
	Threads     int       `json:"threads" yaml:"threads"`
	Total       int       `json:"total" yaml:"total"`
	Completed   int       `json:"completed" yaml:"completed"`
	Succeeded   int       `json:"succeeded" yaml:"succeeded"`
	Failed      int       `json:"failed" yaml:"failed"`
	Dropped     int       `json:"dropped" yaml:"dropped"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration is zero while the run is still open.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// JobRecord is one finished job of a run.
type JobRecord struct {
	Slot        int       `json:"slot" yaml:"slot"`
	SourcePath  string    `json:"source" yaml:"source"`
	Destination string    `json:"destination" yaml:"destination"`
	ArchiveName string    `json:"archive_name" yaml:"archive_name"`
	ExitCode    int       `json:"exit_code" yaml:"exit_code"`
	Succeeded   bool      `json:"succeeded" yaml:"succeeded"`
	ErrorKind   string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`
}

const sourceSeparator = "\n"

// StartRun inserts a running row and returns its new id.
func (s *Store) StartRun(ctx context.Context, start RunStart) (string, error) {
	if start.StartedAt.IsZero() {
		start.StartedAt = time.Now()
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status, output_mode, destination, sources, threads, total)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		formatTime(start.StartedAt),
		StatusRunning,
		start.OutputMode,
		nullableString(start.Destination),
		strings.Join(start.Sources, sourceSeparator),
		start.Threads,
		start.Total,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, summary pool.Summary) error {
	status := StatusCompleted
	if summary.Stopped {
		status = StatusStopped
	}
	finished := summary.Started.Add(summary.Elapsed)
	if summary.Started.IsZero() {
		finished = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, total = ?, completed = ?, succeeded = ?, failed = ?, dropped = ?
         WHERE id = ?`,
		formatTime(finished),
		status,
		summary.Total,
		summary.Completed,
		summary.Succeeded,
		summary.Failed,
		summary.Dropped,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

// AbortRun marks a run that ended with a fatal error.
func (s *Store) AbortRun(ctx context.Context, id string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error_message = ? WHERE id = ?`,
		formatTime(time.Now()), StatusAborted, nullableString(message), id,
	)
	if err != nil {
		return fmt.Errorf("abort run %s: %w", id, err)
	}
	return nil
}

// RecordJob journals one finished job. The password is deliberately not stored.
func (s *Store) RecordJob(ctx context.Context, runID string, result pool.Result) error {
	details := faults.Details(result.Err)
	succeeded := 0
	if result.Succeeded() {
		succeeded = 1
	}
	var started any
	if !result.Started.IsZero() {
		started = formatTime(result.Started)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_results (run_id, slot, source_path, destination, archive_name, exit_code, succeeded,
             error_kind, error_message, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		result.Slot,
		result.Job.SourcePath,
		result.Job.DestinationFolder,
		result.Job.ArchiveName,
		result.ExitCode,
		succeeded,
		nullableString(details.Kind),
		nullableString(details.Message),
		started,
		formatTime(result.Finished),
	)
	if err != nil {
		return fmt.Errorf("insert job result: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, output_mode, destination, sources, threads,
                total, completed, succeeded, failed, dropped, error_message
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                           Run
			started, sources              string
			finished, destination, errMsg sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Status, &run.OutputMode, &destination, &sources,
			&run.Threads, &run.Total, &run.Completed, &run.Succeeded, &run.Failed, &run.Dropped, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			run.FinishedAt = parseTime(finished.String)
		}
		run.Destination = destination.String
		run.Error = errMsg.String
		if sources != "" {
			run.Sources = strings.Split(sources, sourceSeparator)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Jobs returns the journaled jobs of a run in completion order.
func (s *Store) Jobs(ctx context.Context, runID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, source_path, destination, archive_name, exit_code, succeeded, error_kind, error_message, finished_at
         FROM job_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var (
			rec           JobRecord
			succeeded     int
			kind, message sql.NullString
			finished      string
		)
		if err := rows.Scan(&rec.Slot, &rec.SourcePath, &rec.Destination, &rec.ArchiveName, &rec.ExitCode,
			&succeeded, &kind, &message, &finished); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		rec.Succeeded = succeeded == 1
		rec.ErrorKind = kind.String
		rec.Error = message.String
		rec.FinishedAt = parseTime(finished)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Journal adapts the store to the dispatcher's journal hook. Write failures
// are logged and never interrupt the run.
func (s *Store) Journal(ctx context.Context, runID string, logger *slog.Logger) pool.Journal {
	return &journal{ctx: ctx, store: s, runID: runID, logger: logging.NewComponentLogger(logger, "history")}
}

type journal struct {
	ctx    context.Context
	store  *Store
	runID  string
	logger *slog.Logger
}

func (j *journal) JobFinished(result pool.Result) {
	// the run context may already be cancelled by a stop request; the ledger
	// still has to capture the terminated jobs
	ctx := context.WithoutCancel(j.ctx)
	if err := j.store.RecordJob(ctx, j.runID, result); err != nil {
		logging.WarnWithContext(j.logger, "job not journaled", "ledger_write_failed",
			"check free space in the state directory",
			logging.String(logging.FieldSource, result.Job.SourcePath),
			logging.Error(err),
		)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
