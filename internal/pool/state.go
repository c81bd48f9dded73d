package pool

import (
	"fmt"
	"math"
	"time"
)

// RunState holds the counters of one run.
type RunState struct {
	Total         int
	Completed     int
	Succeeded     int
	Failed        int
	Dropped       int
	StopRequested bool
	Started       time.Time
}

// Snapshot is a view of the dispatcher taken on the control loop.
type Snapshot struct {
	RunState
	Backlog int
	Bound   int
}

// Balanced reports whether every discovered entry is accounted for exactly
// once: completed, queued, running, or dropped by a stop request.
func (s Snapshot) Balanced() bool {
	return s.Completed+s.Backlog+s.Bound+s.Dropped == s.Total
}

// Summary is returned once the run is finalized.
type Summary struct {
	Total     int
	Completed int
	Succeeded int
	Failed    int
	Dropped   int
	Stopped   bool
	Started   time.Time
	Elapsed   time.Duration
}

// Line renders the closing summary, e.g. " => 3/4 entries compressed in 12 sec (00:00:11.734)".
func (s Summary) Line() string {
	return fmt.Sprintf(" => %d/%d entries compressed in %d sec (%s)",
		s.Completed, s.Total, int64(math.Round(s.Elapsed.Seconds())), clock(s.Elapsed))
}

func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
