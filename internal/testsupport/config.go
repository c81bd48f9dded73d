package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"rarpack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Runs write to <base>/dst, state lives under <base>/state, and archive
// names are deterministic base names without passwords.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	state := filepath.Join(base, "state")
	cfgVal.Paths.StateDir = state
	cfgVal.Paths.LogDir = filepath.Join(state, "logs")
	cfgVal.Outcome.HistoryFile = filepath.Join(state, "history.csv")
	cfgVal.Outcome.PerRunDir = filepath.Join(state, "runs")
	cfgVal.Output.Mode = config.OutputDestination
	cfgVal.Output.DestinationDir = filepath.Join(base, "dst")
	cfgVal.Naming.GenerateName = false
	cfgVal.Password.Generate = false
	cfgVal.Archive.Split = false
	cfgVal.Workers.Threads = 2
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Compressor.Executable = filepath.Join(base, "bin", "rar")

	if err := os.MkdirAll(cfgVal.Output.DestinationDir, 0o755); err != nil {
		t.Fatalf("mkdir destination: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSourceMode writes archives into subfolder inside each source folder.
func WithSourceMode(subfolder string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Mode = config.OutputSource
		b.cfg.Output.Subfolder = subfolder
	}
}

// WithPerRunOutcome switches the outcome log to one file per run.
func WithPerRunOutcome() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Outcome.Mode = config.OutcomePerRun
	}
}

// WithThreads overrides the worker count.
func WithThreads(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Threads = n
	}
}

// WithStubCompressor installs an executable shell script as the compressor.
func WithStubCompressor(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compressor.Executable = WriteStub(b.t, filepath.Join(b.baseDir, "bin"), "rar", body)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, "rar" is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"rar"}
		}
		binDir := filepath.Join(b.baseDir, "path-bin")
		for _, name := range names {
			WriteStub(b.t, binDir, name, "exit 0")
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
