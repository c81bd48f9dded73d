package pool

import (
	"time"

	"rarpack/internal/discovery"
	"rarpack/internal/jobs"
)

// Process is one running compressor invocation.
type Process interface {
	// Wait blocks until the process exits and returns its exit code. A
	// process killed by a signal reports -1.
	Wait() (int, error)
	// Terminate asks the process to exit.
	Terminate() error
	// Kill forces the process to exit.
	Kill() error
}

// Launcher starts compressor processes.
type Launcher interface {
	Launch(job jobs.Job) (Process, error)
}

// JobBuilder turns a backlog entry into a job right before dispatch.
type JobBuilder interface {
	Build(entry discovery.Entry) (jobs.Job, error)
}

// Recorder durably records successful jobs.
type Recorder interface {
	Record(job jobs.Job) error
	Close() error
}

// Sink receives progress counts and human readable lines.
type Sink interface {
	SetTotal(total int)
	Advance(completed int)
	LogLine(text string)
	SuccessLine(text string)
	ErrorLine(text string)
	Idle()
}

// Journal is notified of every finished job, including launch failures.
type Journal interface {
	JobFinished(result Result)
}

// Result describes how one job ended.
type Result struct {
	Job      jobs.Job
	Slot     int
	ExitCode int
	Err      error
	Started  time.Time
	Finished time.Time
}

// Succeeded reports a clean zero exit.
func (r Result) Succeeded() bool {
	return r.Err == nil && r.ExitCode == 0
}

type discardRecorder struct{}

func (discardRecorder) Record(jobs.Job) error { return nil }
func (discardRecorder) Close() error          { return nil }

type discardSink struct{}

func (discardSink) SetTotal(int)       {}
func (discardSink) Advance(int)        {}
func (discardSink) LogLine(string)     {}
func (discardSink) SuccessLine(string) {}
func (discardSink) ErrorLine(string)   {}
func (discardSink) Idle()              {}
