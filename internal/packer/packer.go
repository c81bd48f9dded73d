package packer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"rarpack/internal/compressor"
	"rarpack/internal/config"
	"rarpack/internal/deps"
	"rarpack/internal/discovery"
	"rarpack/internal/history"
	"rarpack/internal/jobs"
	"rarpack/internal/logging"
	"rarpack/internal/notifications"
	"rarpack/internal/outcome"
	"rarpack/internal/pool"
)

// Packer owns the collaborators of a pack run.
type Packer struct {
	cfg    *config.Config
	rc     config.RunConfig
	logger *slog.Logger

	sink      pool.Sink
	notifier  notifications.Service
	ledger    *history.Store
	launcher  pool.Launcher
	generator jobs.Generator
	fs        afero.Fs
	now       func() time.Time

	mu         sync.Mutex
	dispatcher *pool.Dispatcher
	stopEarly  bool
}

// Option configures optional Packer collaborators.
type Option func(*Packer)

// WithSink routes progress lines to sink instead of discarding them.
func WithSink(sink pool.Sink) Option {
	return func(p *Packer) { p.sink = sink }
}

// WithNotifier replaces the ntfy service derived from the config.
func WithNotifier(n notifications.Service) Option {
	return func(p *Packer) { p.notifier = n }
}

// WithLedger records runs and job results in store.
func WithLedger(store *history.Store) Option {
	return func(p *Packer) { p.ledger = store }
}

// WithLauncher replaces the OS process launcher.
func WithLauncher(l pool.Launcher) Option {
	return func(p *Packer) { p.launcher = l }
}

// WithGenerator replaces the crypto/rand name and password generator.
func WithGenerator(g jobs.Generator) Option {
	return func(p *Packer) { p.generator = g }
}

// WithFs replaces the filesystem used for discovery and destination folders.
func WithFs(fs afero.Fs) Option {
	return func(p *Packer) { p.fs = fs }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Packer) { p.now = now }
}

// New builds a packer for one validated RunConfig.
func New(cfg *config.Config, rc config.RunConfig, logger *slog.Logger, opts ...Option) *Packer {
	p := &Packer{
		cfg:    cfg,
		rc:     rc,
		logger: logging.NewComponentLogger(logger, "packer"),
		fs:     afero.NewOsFs(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(cfg)
	}
	if p.launcher == nil {
		p.launcher = compressor.NewLauncher(rc.Executable, logger)
	}
	return p
}

// Stop asks a running dispatcher to stop. Called before dispatch starts, it
// makes the next dispatch stop immediately.
func (p *Packer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dispatcher != nil {
		p.dispatcher.Stop()
		return
	}
	p.stopEarly = true
}

// ProcessFolders compresses every new entry of sources. An empty sources
// slice uses the sources of the RunConfig. The returned error is non-nil only
// for run-fatal conditions.
func (p *Packer) ProcessFolders(ctx context.Context, sources []string) (pool.Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(sources) == 0 {
		sources = p.rc.Sources
	}
	sink := p.sink
	if sink == nil {
		sink = discardSink{}
	}

	if err := deps.RequireCompressor(p.rc.Executable); err != nil {
		sink.ErrorLine(fmt.Sprintf("RAR executable not found: %s", p.rc.Executable))
		return pool.Summary{}, p.fail(ctx, "compressor missing", "compressor_missing", err)
	}

	outcomeLog, err := outcome.Open(outcome.Options{
		Mode:        p.rc.OutcomeMode,
		HistoryFile: p.rc.HistoryFile,
		PerRunDir:   p.rc.PerRunDir,
		Now:         p.now,
	})
	if err != nil {
		sink.ErrorLine("Issue creating log file...")
		return pool.Summary{}, p.fail(ctx, "outcome log unavailable", "outcome_open_failed", err)
	}
	p.logger.Debug("outcome log opened",
		logging.String("path", outcomeLog.Path()),
		logging.String(logging.FieldEventType, "outcome_opened"),
	)

	factory := jobs.NewFactory(p.rc, p.generator)
	backlog := p.discover(sources, factory.Layout(), sink)

	runCtx := ctx
	var runID string
	if p.ledger != nil {
		runID, err = p.ledger.StartRun(ctx, history.RunStart{
			OutputMode:  string(p.rc.Mode),
			Destination: p.rc.DestinationDir,
			Sources:     sources,
			Threads:     p.rc.Threads,
			Total:       len(backlog),
			StartedAt:   p.now(),
		})
		if err != nil {
			logging.WarnWithContext(p.logger, "run ledger unavailable; run not recorded", "ledger_start_failed",
				"check state_dir permissions", logging.Error(err))
		} else {
			runCtx = logging.WithRunID(ctx, runID)
		}
	}
	logger := logging.WithContext(runCtx, p.logger)

	if len(backlog) > 0 {
		p.notify(runCtx, func(ctx context.Context) error {
			return p.notifier.NotifyRunStarted(ctx, len(backlog), min(p.rc.Threads, len(backlog)))
		}, "run start")
	}

	var journal pool.Journal
	if runID != "" {
		journal = p.ledger.Journal(runCtx, runID, p.logger)
	}

	dispatcher, err := pool.New(backlog, pool.Options{
		Threads:    p.rc.Threads,
		StopGrace:  p.rc.StopGrace,
		Debug:      p.rc.Debug,
		Executable: p.rc.Executable,
		Builder:    factory,
		Launcher:   p.launcher,
		Recorder:   outcomeLog,
		Sink:       sink,
		Journal:    journal,
		Fs:         p.fs,
		Logger:     p.logger,
		Now:        p.now,
	})
	if err != nil {
		_ = outcomeLog.Close()
		return pool.Summary{}, err
	}

	p.mu.Lock()
	p.dispatcher = dispatcher
	if p.stopEarly {
		dispatcher.Stop()
	}
	p.mu.Unlock()

	summary, runErr := dispatcher.Run(runCtx)

	ledgerCtx := context.WithoutCancel(runCtx)
	if runID != "" {
		if runErr != nil {
			err = p.ledger.AbortRun(ledgerCtx, runID, runErr)
		} else {
			err = p.ledger.FinishRun(ledgerCtx, runID, summary)
		}
		if err != nil {
			logging.WarnWithContext(logger, "run ledger update failed", "ledger_finish_failed",
				"check state_dir permissions", logging.Error(err))
		}
	}

	if runErr != nil {
		return summary, p.fail(ledgerCtx, "run finalization failed", "run_failed", runErr)
	}

	logger.Info("pack run finished",
		logging.Int("total", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("dropped", summary.Dropped),
		logging.Bool("stopped", summary.Stopped),
		logging.Duration("elapsed", summary.Elapsed),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	if summary.Total > 0 {
		p.notify(ledgerCtx, func(ctx context.Context) error {
			return p.notifier.NotifyRunCompleted(ctx, notifications.RunResult{
				Succeeded: summary.Succeeded,
				Failed:    summary.Failed,
				Dropped:   summary.Dropped,
				Stopped:   summary.Stopped,
				Duration:  summary.Elapsed,
			})
		}, "run completion")
	}
	return summary, nil
}

func (p *Packer) discover(sources []string, layout jobs.Layout, sink pool.Sink) []discovery.Entry {
	opts := discovery.Options{
		ReservedName: p.rc.Subfolder,
		Exclude: func(entry discovery.Entry) bool {
			if p.rc.Mode == config.OutputDestination && filepath.Clean(entry.Path) == filepath.Clean(p.rc.DestinationDir) {
				return true
			}
			return layout.Compressed(p.fs, entry)
		},
	}
	if p.rc.Mode == config.OutputSource {
		opts.PrepareFolder = func(source string) error {
			return p.fs.MkdirAll(layout.Root(source), 0o755)
		}
	}

	result := discovery.DiscoverWithFS(p.fs, sources, opts)
	for _, err := range result.Errors {
		sink.ErrorLine(err.Error())
		logging.ErrorWithContext(p.logger, "source folder skipped", "discovery_failed", err)
	}
	for _, entry := range result.Skipped {
		if p.rc.Debug {
			sink.ErrorLine(fmt.Sprintf("skip %s as it is already present in destination folder", entry.Name()))
		}
	}
	p.logger.Info("discovery complete",
		logging.Int("entries", len(result.Entries)),
		logging.Int("skipped", len(result.Skipped)),
		logging.Int("folder_errors", len(result.Errors)),
		logging.String(logging.FieldEventType, "discovery_complete"),
	)
	return result.Entries
}

func (p *Packer) fail(ctx context.Context, msg, eventType string, err error) error {
	logging.ErrorWithContext(logging.WithContext(ctx, p.logger), msg, eventType, err)
	p.notify(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return p.notifier.NotifyError(ctx, err, msg)
	}, "error")
	return err
}

func (p *Packer) notify(ctx context.Context, send func(context.Context) error, label string) {
	if err := send(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			p.logger.Debug("shutting down, could not send " + label + " notification")
			return
		}
		p.logger.Debug(label+" notification failed", logging.Error(err))
	}
}

type discardSink struct{}

func (discardSink) SetTotal(int)       {}
func (discardSink) Advance(int)        {}
func (discardSink) LogLine(string)     {}
func (discardSink) SuccessLine(string) {}
func (discardSink) ErrorLine(string)   {}
func (discardSink) Idle()              {}
