package pool

import (
	"time"

	"rarpack/internal/jobs"
)

// WorkerSlot is a reusable execution unit bound to at most one job at a time.
type WorkerSlot struct {
	ID      int
	job     *jobs.Job
	proc    Process
	started time.Time
}

// Bound reports whether a job is currently running in the slot.
func (s *WorkerSlot) Bound() bool {
	return s.job != nil
}

// Job returns the bound job, if any.
func (s *WorkerSlot) Job() (jobs.Job, bool) {
	if s.job == nil {
		return jobs.Job{}, false
	}
	return *s.job, true
}

func (s *WorkerSlot) bind(job jobs.Job, proc Process, at time.Time) {
	s.job = &job
	s.proc = proc
	s.started = at
}

func (s *WorkerSlot) release() (jobs.Job, time.Time) {
	var job jobs.Job
	if s.job != nil {
		job = *s.job
	}
	started := s.started
	s.job = nil
	s.proc = nil
	s.started = time.Time{}
	return job, started
}
