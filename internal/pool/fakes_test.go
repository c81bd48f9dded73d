package pool_test

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"rarpack/internal/jobs"
	"rarpack/internal/pool"
)

type fakeProc struct {
	job        jobs.Job
	exit       chan int
	once       sync.Once
	mu         sync.Mutex
	terminated bool
	killed     bool
	exitOnTerm bool
}

func newFakeProc(job jobs.Job) *fakeProc {
	return &fakeProc{job: job, exit: make(chan int, 1)}
}

func (p *fakeProc) finish(code int) {
	p.once.Do(func() { p.exit <- code })
}

func (p *fakeProc) Wait() (int, error) {
	return <-p.exit, nil
}

func (p *fakeProc) Terminate() error {
	p.mu.Lock()
	p.terminated = true
	exit := p.exitOnTerm
	p.mu.Unlock()
	if exit {
		p.finish(-1)
	}
	return nil
}

func (p *fakeProc) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.finish(-1)
	return nil
}

func (p *fakeProc) wasTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

func (p *fakeProc) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// fakeLauncher either completes processes immediately with the exit code from
// codes (auto) or hands them to the test through the launched channel.
type fakeLauncher struct {
	fs         afero.Fs
	auto       bool
	exitOnTerm bool
	codes      map[string]int
	failStart  map[string]bool
	launched   chan *fakeProc

	mu    sync.Mutex
	order []string
}

func newLauncher(fs afero.Fs, auto bool) *fakeLauncher {
	return &fakeLauncher{
		fs:        fs,
		auto:      auto,
		codes:     map[string]int{},
		failStart: map[string]bool{},
		launched:  make(chan *fakeProc, 64),
	}
}

func (l *fakeLauncher) Launch(job jobs.Job) (pool.Process, error) {
	base := filepath.Base(job.SourcePath)
	if l.failStart[base] {
		return nil, errors.New("exec format error")
	}
	l.mu.Lock()
	l.order = append(l.order, base)
	l.mu.Unlock()

	// partial output the dispatcher has to clean up on failure
	_ = afero.WriteFile(l.fs, job.ArchivePath(), []byte("partial"), 0o644)

	proc := newFakeProc(job)
	proc.exitOnTerm = l.exitOnTerm
	if l.auto {
		proc.finish(l.codes[base])
	}
	l.launched <- proc
	return proc, nil
}

func (l *fakeLauncher) launchOrder() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

type fakeRecorder struct {
	mu     sync.Mutex
	rows   []jobs.Job
	closed bool
}

func (r *fakeRecorder) Record(job jobs.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, job)
	return nil
}

func (r *fakeRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *fakeRecorder) sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, filepath.Base(row.SourcePath))
	}
	return out
}

type recordingSink struct {
	mu        sync.Mutex
	total     int
	progress  []int
	logs      []string
	successes []string
	errors    []string
	idle      int
}

func (s *recordingSink) SetTotal(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
}

func (s *recordingSink) Advance(completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, completed)
}

func (s *recordingSink) LogLine(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, text)
}

func (s *recordingSink) SuccessLine(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes = append(s.successes, text)
}

func (s *recordingSink) ErrorLine(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, text)
}

func (s *recordingSink) Idle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle++
}

func (s *recordingSink) idleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle
}

type recordingJournal struct {
	mu      sync.Mutex
	results []pool.Result
}

func (j *recordingJournal) JobFinished(result pool.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, result)
}
