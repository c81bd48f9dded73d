package outcome_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rarpack/internal/config"
	"rarpack/internal/faults"
	"rarpack/internal/jobs"
	"rarpack/internal/outcome"
)

func fixedClock() func() time.Time {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	return func() time.Time { return at }
}

var sampleJob = jobs.Job{
	SourcePath:        "/src/movieA",
	DestinationFolder: "/dst/RAR_movieA",
	ArchiveName:       "movieA",
	Password:          "p4ss",
}

func TestPerRunWritesHeaderAndRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	log, err := outcome.Open(outcome.Options{Mode: config.OutcomePerRun, PerRunDir: dir, Now: fixedClock()})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "rarpack_20240309_070501.csv"), log.Path())

	require.NoError(t, log.Record(sampleJob))
	require.NoError(t, log.Record(jobs.Job{SourcePath: "/src/file.txt", DestinationFolder: "/dst/RAR_file", ArchiveName: "file"}))
	require.NoError(t, log.Close())
	require.NoError(t, log.Close())

	content, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	require.Equal(t,
		"source;destination;archive name;password\n"+
			"/src/movieA;/dst/RAR_movieA;movieA;p4ss\n"+
			"/src/file.txt;/dst/RAR_file;file;\n",
		string(content))
}

func TestPerRunSameSecondKeepsEarlierFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	opts := outcome.Options{Mode: config.OutcomePerRun, PerRunDir: dir, Now: fixedClock()}

	first, err := outcome.Open(opts)
	require.NoError(t, err)
	require.NoError(t, first.Record(sampleJob))
	require.NoError(t, first.Close())

	second, err := outcome.Open(opts)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "rarpack_20240309_070501_2.csv"), second.Path())
	require.NoError(t, second.Close())

	content, err := os.ReadFile(first.Path())
	require.NoError(t, err)
	require.Equal(t,
		"source;destination;archive name;password\n"+
			"/src/movieA;/dst/RAR_movieA;movieA;p4ss\n",
		string(content))
}

func TestHistoryHeaderOnlyForNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.csv")

	first, err := outcome.Open(outcome.Options{Mode: config.OutcomeHistory, HistoryFile: path, Now: fixedClock()})
	require.NoError(t, err)
	require.NoError(t, first.Record(sampleJob))
	require.NoError(t, first.Close())

	second, err := outcome.Open(outcome.Options{Mode: config.OutcomeHistory, HistoryFile: path, Now: fixedClock()})
	require.NoError(t, err)
	require.NoError(t, second.Record(sampleJob))
	require.NoError(t, second.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	row := "2024/03/09 07:05:01;/src/movieA;/dst/RAR_movieA;movieA;p4ss\n"
	require.Equal(t, "date;source;destination;archive name;password\n"+row+row, string(content))
}

func TestHistoryExistingFileWithoutHeaderIsAppended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))

	log, err := outcome.Open(outcome.Options{Mode: config.OutcomeHistory, HistoryFile: path, Now: fixedClock()})
	require.NoError(t, err)
	require.NoError(t, log.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old\n", string(content))
}

func TestOpenFailureIsLogFileError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := outcome.Open(outcome.Options{Mode: config.OutcomePerRun, PerRunDir: filepath.Join(blocker, "runs")})
	require.Error(t, err)
	require.True(t, errors.Is(err, faults.ErrLogFile))
	require.True(t, faults.IsFatal(err))
}

func TestRecordAfterCloseFails(t *testing.T) {
	log, err := outcome.Open(outcome.Options{Mode: config.OutcomeHistory, HistoryFile: filepath.Join(t.TempDir(), "h.csv")})
	require.NoError(t, err)
	require.NoError(t, log.Close())
	require.Error(t, log.Record(sampleJob))
}
