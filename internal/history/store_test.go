package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rarpack/internal/faults"
	"rarpack/internal/history"
	"rarpack/internal/jobs"
	"rarpack/internal/logging"
	"rarpack/internal/pool"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "runs.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, err := store.StartRun(ctx, history.RunStart{
		OutputMode:  "destination",
		Destination: "/dst",
		Sources:     []string{"/src/a", "/src/b"},
		Threads:     2,
		Total:       3,
		StartedAt:   started,
	})
	if err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("expected uuid run id, got %q", id)
	}

	summary := pool.Summary{Total: 3, Completed: 3, Succeeded: 2, Failed: 1, Started: started, Elapsed: 90 * time.Second}
	if err := store.FinishRun(ctx, id, summary); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != history.StatusCompleted || run.Succeeded != 2 || run.Failed != 1 {
		t.Fatalf("unexpected run row %+v", run)
	}
	if len(run.Sources) != 2 || run.Sources[1] != "/src/b" {
		t.Fatalf("unexpected sources %v", run.Sources)
	}
	if run.Duration() != 90*time.Second {
		t.Fatalf("unexpected duration %v", run.Duration())
	}
}

func TestStoppedAndAbortedStatuses(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	stopped, err := store.StartRun(ctx, history.RunStart{OutputMode: "source", StartedAt: time.Now().Add(-time.Minute)})
	if err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	if err := store.FinishRun(ctx, stopped, pool.Summary{Stopped: true, Dropped: 4, Started: time.Now()}); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}
	aborted, err := store.StartRun(ctx, history.RunStart{OutputMode: "source"})
	if err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	if err := store.AbortRun(ctx, aborted, errors.New("disk gone")); err != nil {
		t.Fatalf("AbortRun returned error: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	statuses := map[string]history.Run{}
	for _, run := range runs {
		statuses[run.ID] = run
	}
	if statuses[stopped].Status != history.StatusStopped || statuses[stopped].Dropped != 4 {
		t.Fatalf("unexpected stopped run %+v", statuses[stopped])
	}
	if statuses[aborted].Status != history.StatusAborted || statuses[aborted].Error != "disk gone" {
		t.Fatalf("unexpected aborted run %+v", statuses[aborted])
	}
}

func TestJournalRecordsJobsWithoutPasswords(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	id, err := store.StartRun(ctx, history.RunStart{OutputMode: "destination"})
	if err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	journal := store.Journal(ctx, id, logging.NewNop())
	job := jobs.Job{SourcePath: "/src/a", DestinationFolder: "/dst/RAR_a", ArchiveName: "a", Password: "secret"}
	now := time.Now()

	journal.JobFinished(pool.Result{Job: job, Slot: 0, ExitCode: 0, Started: now, Finished: now})
	cancel()
	failure := faults.Wrap(faults.ErrCompression, "compressor", "exit", "exit code 2", nil)
	journal.JobFinished(pool.Result{Job: job, Slot: 1, ExitCode: 2, Err: failure, Finished: now})

	records, err := store.Jobs(context.Background(), id)
	if err != nil {
		t.Fatalf("Jobs returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 job records, got %d", len(records))
	}
	if !records[0].Succeeded || records[0].ErrorKind != "" {
		t.Fatalf("unexpected success record %+v", records[0])
	}
	if records[1].Succeeded || records[1].ExitCode != 2 || records[1].ErrorKind != faults.ErrCompression.Error() {
		t.Fatalf("unexpected failure record %+v", records[1])
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := store.StartRun(context.Background(), history.RunStart{OutputMode: "destination"}); err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.ListRuns(context.Background(), 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d (err=%v)", len(runs), err)
	}
}
