package outcome

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"rarpack/internal/config"
	"rarpack/internal/faults"
	"rarpack/internal/jobs"
)

const (
	perRunHeader  = "source;destination;archive name;password\n"
	historyHeader = "date;source;destination;archive name;password\n"

	historyTimeLayout = "2006/01/02 15:04:05"
	perRunTimeLayout  = "20060102_150405"

	maxPerRunSuffix = 100
)

// Options select the log file of a run.
type Options struct {
	Mode        config.OutcomeMode
	HistoryFile string
	PerRunDir   string
	// Prefix names per-run files: <Prefix>_<yyyyMMdd_hhmmss>.csv.
	Prefix string
	Now    func() time.Time
}

// Log is an open outcome file.
type Log struct {
	mu     sync.Mutex
	mode   config.OutcomeMode
	path   string
	file   *os.File
	lock   *flock.Flock
	now    func() time.Time
	closed bool
}

// Open creates or appends to the outcome file. Any failure is a fatal
// ErrLogFile: the run must not dispatch without a place to record results.
func Open(opts Options) (*Log, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Prefix == "" {
		opts.Prefix = "rarpack"
	}
	switch opts.Mode {
	case config.OutcomePerRun:
		return openPerRun(opts)
	case config.OutcomeHistory, "":
		return openHistory(opts)
	default:
		return nil, faults.Wrap(faults.ErrLogFile, "outcome", "open", fmt.Sprintf("unknown mode %q", opts.Mode), nil)
	}
}

func openPerRun(opts Options) (*Log, error) {
	if err := os.MkdirAll(opts.PerRunDir, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrLogFile, "outcome", "open", "create "+opts.PerRunDir, err)
	}
	file, path, err := createPerRunFile(opts)
	if err != nil {
		return nil, faults.Wrap(faults.ErrLogFile, "outcome", "open", path, err)
	}
	if _, err := file.WriteString(perRunHeader); err != nil {
		_ = file.Close()
		return nil, faults.Wrap(faults.ErrLogFile, "outcome", "header", path, err)
	}
	return &Log{mode: config.OutcomePerRun, path: path, file: file, now: opts.Now}, nil
}

// createPerRunFile never reuses an existing file: runs started within the same
// second get a _2, _3, ... suffix.
func createPerRunFile(opts Options) (*os.File, string, error) {
	base := fmt.Sprintf("%s_%s", opts.Prefix, opts.Now().Format(perRunTimeLayout))
	var path string
	for n := 1; n <= maxPerRunSuffix; n++ {
		name := base + ".csv"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.csv", base, n)
		}
		path = filepath.Join(opts.PerRunDir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, path, err
		}
	}
	return nil, path, fmt.Errorf("no free file name after %d attempts", maxPerRunSuffix)
}

func openHistory(opts Options) (*Log, error) {
	path := opts.HistoryFile
	if strings.TrimSpace(path) == "" {
		return nil, faults.Wrap(faults.ErrLogFile, "outcome", "open", "no history file configured", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrLogFile, "outcome", "open", "create "+filepath.Dir(path), err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, faults.Wrap(faults.ErrLogFile, "outcome", "lock", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, faults.Wrap(faults.ErrLogFile, "outcome", "open", path, err)
	}
	if isNew {
		if _, err := file.WriteString(historyHeader); err != nil {
			_ = file.Close()
			return nil, faults.Wrap(faults.ErrLogFile, "outcome", "header", path, err)
		}
	}
	return &Log{mode: config.OutcomeHistory, path: path, file: file, lock: lock, now: opts.Now}, nil
}

// Path is the file rows are written to.
func (l *Log) Path() string {
	return l.path
}

// Record appends one row for a successful job.
func (l *Log) Record(job jobs.Job) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return faults.Wrap(faults.ErrLogFile, "outcome", "record", "log already closed", nil)
	}

	var row strings.Builder
	if l.mode == config.OutcomeHistory {
		row.WriteString(l.now().Format(historyTimeLayout))
		row.WriteByte(';')
	}
	row.WriteString(job.SourcePath)
	row.WriteByte(';')
	row.WriteString(job.DestinationFolder)
	row.WriteByte(';')
	row.WriteString(job.ArchiveName)
	row.WriteByte(';')
	row.WriteString(job.Password)
	row.WriteByte('\n')

	if l.lock != nil {
		if err := l.lock.Lock(); err != nil {
			return faults.Wrap(faults.ErrLogFile, "outcome", "lock", l.path, err)
		}
		defer func() { _ = l.lock.Unlock() }()
	}
	if _, err := l.file.WriteString(row.String()); err != nil {
		return faults.Wrap(faults.ErrLogFile, "outcome", "record", l.path, err)
	}
	return nil
}

// Close flushes and closes the file. Calling it twice is a no-op.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.file.Sync(); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}
