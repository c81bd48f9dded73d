package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"rarpack/internal/discovery"
	"rarpack/internal/faults"
	"rarpack/internal/jobs"
	"rarpack/internal/logging"
)

// Options wires a Dispatcher to its collaborators.
type Options struct {
	Threads   int
	StopGrace time.Duration
	Debug     bool
	// Executable is only used to render the command line in debug mode.
	Executable string

	Builder  JobBuilder
	Launcher Launcher
	Recorder Recorder
	Sink     Sink
	Journal  Journal
	Fs       afero.Fs
	Logger   *slog.Logger
	Now      func() time.Time
	// Observe is called on the control loop after every state change.
	Observe func(Snapshot)
}

type completion struct {
	slot int
	code int
	err  error
}

// Dispatcher assigns backlog entries to worker slots and accounts for every
// completion.
type Dispatcher struct {
	opts    Options
	logger  *slog.Logger
	fs      afero.Fs
	sink    Sink
	backlog []discovery.Entry
	slots   []*WorkerSlot
	state   RunState

	done      chan completion
	stopCh    chan struct{}
	stopping  atomic.Bool
	ran       atomic.Bool
	killTimer <-chan time.Time
}

// New prepares a dispatcher for the given backlog.
func New(backlog []discovery.Entry, opts Options) (*Dispatcher, error) {
	if opts.Builder == nil {
		return nil, errors.New("pool: job builder is required")
	}
	if opts.Launcher == nil {
		return nil, errors.New("pool: launcher is required")
	}
	if opts.Recorder == nil {
		opts.Recorder = discardRecorder{}
	}
	if opts.Sink == nil {
		opts.Sink = discardSink{}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}

	queue := make([]discovery.Entry, len(backlog))
	copy(queue, backlog)

	return &Dispatcher{
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "dispatcher"),
		fs:      opts.Fs,
		sink:    opts.Sink,
		backlog: queue,
		stopCh:  make(chan struct{}, 1),
	}, nil
}

// Stop requests a cooperative shutdown. It is safe to call from any goroutine
// and more than once.
func (d *Dispatcher) Stop() {
	if d.stopping.CompareAndSwap(false, true) {
		d.stopCh <- struct{}{}
	}
}

// Run dispatches the backlog and blocks until every slot is idle. Cancelling
// ctx has the same effect as Stop. The returned error only reports a failure
// to close the outcome log; per-job failures are counted in the Summary.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	if !d.ran.CompareAndSwap(false, true) {
		return Summary{}, errors.New("pool: dispatcher already ran")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		d.stopping.Store(true)
	}
	d.logger = logging.WithContext(ctx, d.logger)

	d.state = RunState{Total: len(d.backlog), Started: d.opts.Now()}
	d.sink.SetTotal(d.state.Total)

	workers := min(d.opts.Threads, len(d.backlog))
	if workers == 0 {
		d.sink.LogLine("There are no items to compress...")
		return d.finalize()
	}

	d.sink.LogLine(fmt.Sprintf("There are %d items to compress using %d threads", d.state.Total, workers))
	d.logger.Info("dispatch started",
		logging.String(logging.FieldEventType, "pool_started"),
		logging.Int("entries", d.state.Total),
		logging.Int("workers", workers),
	)

	d.done = make(chan completion, workers)
	d.slots = make([]*WorkerSlot, workers)
	for i := range d.slots {
		d.slots[i] = &WorkerSlot{ID: i}
	}
	for _, slot := range d.slots {
		d.advance(slot)
	}
	d.observe()

	ctxDone := ctx.Done()
	for !d.allIdle() {
		select {
		case c := <-d.done:
			d.complete(c)
		case <-d.stopCh:
			d.halt("stop requested")
		case <-ctxDone:
			ctxDone = nil
			d.stopping.Store(true)
			d.halt("context cancelled")
		case <-d.killTimer:
			d.killTimer = nil
			d.killBound()
		}
		d.observe()
	}
	return d.finalize()
}

// advance binds the next backlog entry to slot, or leaves it idle when the
// backlog is empty or a stop was requested. Entries that fail before launch
// are counted as failed and the next one is tried.
func (d *Dispatcher) advance(slot *WorkerSlot) {
	for {
		if d.stopping.Load() && !d.state.StopRequested {
			d.halt("stop requested")
		}
		if d.state.StopRequested || len(d.backlog) == 0 {
			return
		}
		entry := d.backlog[0]
		d.backlog = d.backlog[1:]

		job, err := d.opts.Builder.Build(entry)
		if err != nil {
			d.launchFailed(slot, jobs.Job{SourcePath: entry.Path, IsDir: entry.IsDir}, "Couldn't prepare job for "+entry.Path, err)
			continue
		}
		if err := d.prepareDestination(job); err != nil {
			d.launchFailed(slot, job, "Issue creating dst folder: "+job.DestinationFolder, err)
			continue
		}

		if d.opts.Debug {
			d.sink.LogLine(d.commandLine(job))
		} else {
			d.sink.LogLine("Compressing " + job.SourcePath)
		}

		proc, err := d.opts.Launcher.Launch(job)
		if err != nil {
			_ = d.fs.RemoveAll(job.DestinationFolder)
			d.launchFailed(slot, job, "Couldn't start compressor for "+job.SourcePath, err)
			continue
		}

		slot.bind(job, proc, d.opts.Now())
		d.logger.Debug("job launched",
			logging.String(logging.FieldEventType, "job_launch"),
			logging.Int(logging.FieldSlot, slot.ID),
			logging.String(logging.FieldSource, job.SourcePath),
			logging.String("destination", job.DestinationFolder),
		)
		go d.wait(slot.ID, proc)
		return
	}
}

func (d *Dispatcher) wait(slot int, proc Process) {
	code, err := proc.Wait()
	d.done <- completion{slot: slot, code: code, err: err}
}

func (d *Dispatcher) prepareDestination(job jobs.Job) error {
	if err := d.fs.MkdirAll(filepath.Dir(job.DestinationFolder), 0o755); err != nil {
		return err
	}
	return d.fs.Mkdir(job.DestinationFolder, 0o755)
}

func (d *Dispatcher) launchFailed(slot *WorkerSlot, job jobs.Job, message string, cause error) {
	err := faults.Wrap(faults.ErrLaunch, "dispatcher", "launch", message, cause)
	now := d.opts.Now()

	d.state.Completed++
	d.state.Failed++
	d.sink.Advance(d.state.Completed)
	d.sink.ErrorLine(message)
	logging.ErrorWithContext(d.logger, "job not launched", "launch_failed", err,
		logging.Int(logging.FieldSlot, slot.ID),
		logging.String(logging.FieldSource, job.SourcePath),
	)
	d.journal(Result{Job: job, Slot: slot.ID, ExitCode: -1, Err: err, Started: now, Finished: now})
}

func (d *Dispatcher) complete(c completion) {
	slot := d.slots[c.slot]
	proc := slot.proc
	job, started := slot.release()
	result := Result{
		Job:      job,
		Slot:     slot.ID,
		ExitCode: c.code,
		Err:      c.err,
		Started:  started,
		Finished: d.opts.Now(),
	}

	d.state.Completed++
	d.sink.Advance(d.state.Completed)

	if result.Succeeded() {
		d.state.Succeeded++
		if err := d.opts.Recorder.Record(job); err != nil {
			d.sink.ErrorLine("Couldn't record " + job.SourcePath + " in the outcome log")
			logging.ErrorWithContext(d.logger, "outcome not recorded", "record_failed", err,
				logging.String(logging.FieldSource, job.SourcePath),
			)
		}
		d.sink.SuccessLine("Compressed " + job.SourcePath)
		d.logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Int(logging.FieldSlot, slot.ID),
			logging.String(logging.FieldSource, job.SourcePath),
			logging.Duration("duration", result.Finished.Sub(started)),
		)
	} else {
		d.state.Failed++
		result.Err = faults.Wrap(faults.ErrCompression, "compressor", "exit",
			fmt.Sprintf("exit code %d", c.code), c.err)
		d.sink.ErrorLine(fmt.Sprintf("Error during compression of %s: #%d", job.DestinationFolder, c.code))
		attrs := []logging.Attr{
			logging.Int(logging.FieldSlot, slot.ID),
			logging.String(logging.FieldSource, job.SourcePath),
			logging.Int("exit_code", c.code),
		}
		if diag, ok := proc.(interface{ Diagnostics() string }); ok {
			if out := strings.TrimSpace(diag.Diagnostics()); out != "" {
				attrs = append(attrs, logging.String("stderr", out))
			}
		}
		logging.ErrorWithContext(d.logger, "compression failed", "job_failed", result.Err, attrs...)
		if err := d.fs.RemoveAll(job.DestinationFolder); err != nil {
			d.sink.ErrorLine("Error removing broken folder " + job.DestinationFolder)
			logging.WarnWithContext(d.logger, "partial output not removed", "cleanup_failed",
				"remove the folder manually before the next run",
				logging.String("destination", job.DestinationFolder),
				logging.Error(err),
			)
		}
	}
	d.journal(result)
	d.advance(slot)
}

// halt applies a stop request: the backlog is dropped and bound processes are
// asked to terminate. It runs at most once per run.
func (d *Dispatcher) halt(reason string) {
	if d.state.StopRequested {
		return
	}
	d.state.StopRequested = true
	d.state.Dropped = len(d.backlog)
	d.backlog = nil

	d.sink.ErrorLine(fmt.Sprintf("Job stopped with %d entries compressed", d.state.Completed))
	d.logger.Info("stopping dispatch",
		logging.String(logging.FieldEventType, "stop_requested"),
		logging.String("reason", reason),
		logging.Int("dropped", d.state.Dropped),
		logging.Int("running", d.bound()),
	)

	for _, slot := range d.slots {
		if !slot.Bound() {
			continue
		}
		if err := slot.proc.Terminate(); err != nil {
			logging.WarnWithContext(d.logger, "terminate request failed", "terminate_failed",
				"the process may already have exited",
				logging.Int(logging.FieldSlot, slot.ID),
				logging.Error(err),
			)
		}
	}
	if d.opts.StopGrace > 0 && d.bound() > 0 {
		d.killTimer = time.After(d.opts.StopGrace)
	}
}

func (d *Dispatcher) killBound() {
	for _, slot := range d.slots {
		if !slot.Bound() {
			continue
		}
		job, _ := slot.Job()
		logging.WarnWithContext(d.logger, "process still running after grace period; killing", "escalate_kill",
			"raise workers.stop_grace_seconds if the compressor needs longer to exit",
			logging.Int(logging.FieldSlot, slot.ID),
			logging.String(logging.FieldSource, job.SourcePath),
		)
		if err := slot.proc.Kill(); err != nil {
			d.logger.Debug("kill failed", logging.Int(logging.FieldSlot, slot.ID), logging.Error(err))
		}
	}
}

func (d *Dispatcher) finalize() (Summary, error) {
	summary := Summary{
		Total:     d.state.Total,
		Completed: d.state.Completed,
		Succeeded: d.state.Succeeded,
		Failed:    d.state.Failed,
		Dropped:   d.state.Dropped,
		Stopped:   d.state.StopRequested,
		Started:   d.state.Started,
		Elapsed:   d.opts.Now().Sub(d.state.Started),
	}

	var closeErr error
	if err := d.opts.Recorder.Close(); err != nil {
		closeErr = faults.Wrap(faults.ErrLogFile, "dispatcher", "close", "outcome log", err)
		d.sink.ErrorLine("Couldn't close the outcome log")
	}

	d.sink.LogLine(summary.Line())
	d.sink.Advance(summary.Completed)
	d.logger.Info("dispatch finished",
		logging.String(logging.FieldEventType, "pool_finalized"),
		logging.Int("completed", summary.Completed),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("dropped", summary.Dropped),
		logging.Bool("stopped", summary.Stopped),
		logging.Duration("elapsed", summary.Elapsed),
	)
	d.sink.Idle()
	return summary, closeErr
}

func (d *Dispatcher) journal(result Result) {
	if d.opts.Journal != nil {
		d.opts.Journal.JobFinished(result)
	}
}

func (d *Dispatcher) observe() {
	if d.opts.Observe == nil {
		return
	}
	snapshot := Snapshot{RunState: d.state, Backlog: len(d.backlog), Bound: d.bound()}
	if !snapshot.Balanced() {
		d.logger.Error("run counters out of balance",
			logging.String(logging.FieldEventType, "invariant_violation"),
			logging.Int("total", snapshot.Total),
			logging.Int("completed", snapshot.Completed),
			logging.Int("backlog", snapshot.Backlog),
			logging.Int("bound", snapshot.Bound),
			logging.Int("dropped", snapshot.Dropped),
		)
	}
	d.opts.Observe(snapshot)
}

func (d *Dispatcher) allIdle() bool {
	return d.bound() == 0
}

func (d *Dispatcher) bound() int {
	n := 0
	for _, slot := range d.slots {
		if slot.Bound() {
			n++
		}
	}
	return n
}

func (d *Dispatcher) commandLine(job jobs.Job) string {
	exe := d.opts.Executable
	if exe == "" {
		exe = "rar"
	}
	return exe + " " + strings.Join(job.Args, " ")
}
