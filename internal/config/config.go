package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

//go:embed sample_config.toml
var sampleConfig string

// OutputMode selects where archives are written.
type OutputMode string

const (
	// OutputDestination writes every archive folder under one shared destination root.
	OutputDestination OutputMode = "destination"
	// OutputSource writes archive folders into a reserved subfolder of each source folder.
	OutputSource OutputMode = "source"
)

// OutcomeMode selects how successful jobs are recorded.
type OutcomeMode string

const (
	// OutcomeHistory appends to a single CSV file shared by every run.
	OutcomeHistory OutcomeMode = "history"
	// OutcomePerRun creates a new CSV file for each invocation.
	OutcomePerRun OutcomeMode = "per_run"
)

// Compressor identifies the external archiver.
type Compressor struct {
	Executable string `toml:"executable" yaml:"executable"`
}

// Archive contains options forwarded verbatim to the compressor.
type Archive struct {
	CompressionLevel int  `toml:"compression_level" yaml:"compression_level"`
	Split            bool `toml:"split" yaml:"split"`
	SplitSizeMB      int  `toml:"split_size_mb" yaml:"split_size_mb"`
	Recovery         bool `toml:"recovery" yaml:"recovery"`
	RecoveryPct      int  `toml:"recovery_pct" yaml:"recovery_pct"`
	Lock             bool `toml:"lock" yaml:"lock"`
}

// Naming controls archive and destination folder names.
type Naming struct {
	GenerateName bool   `toml:"generate_name" yaml:"generate_name"`
	NameLength   int    `toml:"name_length" yaml:"name_length"`
	Prefix       string `toml:"prefix" yaml:"prefix"`
}

// Password controls archive encryption.
type Password struct {
	Generate bool   `toml:"generate" yaml:"generate"`
	Length   int    `toml:"length" yaml:"length"`
	UseFixed bool   `toml:"use_fixed" yaml:"use_fixed"`
	Fixed    string `toml:"fixed" yaml:"fixed"`
}

// Output selects the filesystem layout of produced archives.
type Output struct {
	Mode           OutputMode `toml:"mode" yaml:"mode"`
	DestinationDir string     `toml:"destination_dir" yaml:"destination_dir"`
	Subfolder      string     `toml:"subfolder" yaml:"subfolder"`
}

// Workers bounds compressor concurrency.
type Workers struct {
	Threads          int `toml:"threads" yaml:"threads"`
	StopGraceSeconds int `toml:"stop_grace_seconds" yaml:"stop_grace_seconds"`
}

// Outcome configures the CSV record of successful jobs.
type Outcome struct {
	Mode        OutcomeMode `toml:"mode" yaml:"mode"`
	HistoryFile string      `toml:"history_file" yaml:"history_file"`
	PerRunDir   string      `toml:"per_run_dir" yaml:"per_run_dir"`
}

// Paths contains directories owned by rarpack itself.
type Paths struct {
	LogDir   string `toml:"log_dir" yaml:"log_dir"`
	StateDir string `toml:"state_dir" yaml:"state_dir"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" yaml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout" yaml:"request_timeout"`
}

// Logging contains configuration for diagnostic log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Config encapsulates all configuration values for rarpack.
//
// Configuration sections by subsystem:
//   - Compressor: the external archiver executable
//   - Archive: compression level, volumes, recovery records, lock
//   - Naming / Password: archive names and encryption
//   - Output: shared destination or per-source subfolder layout
//   - Workers: concurrent compressor processes and stop escalation
//   - Outcome: CSV record of successful jobs
//   - Paths: diagnostic logs and the run ledger database
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Compressor    Compressor    `toml:"compressor" yaml:"compressor"`
	Archive       Archive       `toml:"archive" yaml:"archive"`
	Naming        Naming        `toml:"naming" yaml:"naming"`
	Password      Password      `toml:"password" yaml:"password"`
	Output        Output        `toml:"output" yaml:"output"`
	Workers       Workers       `toml:"workers" yaml:"workers"`
	Outcome       Outcome       `toml:"outcome" yaml:"outcome"`
	Paths         Paths         `toml:"paths" yaml:"paths"`
	Notifications Notifications `toml:"notifications" yaml:"notifications"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rarpack/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		return nil
	default:
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		return nil
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rarpack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories rarpack writes its own state into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.StateDir}
	switch c.Outcome.Mode {
	case OutcomePerRun:
		dirs = append(dirs, c.Outcome.PerRunDir)
	default:
		dirs = append(dirs, filepath.Dir(c.Outcome.HistoryFile))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath is the SQLite database holding the run history.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "runs.db")
}

// LogFilePath is the diagnostic log written next to the console output.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "rarpack.log")
}

// Redacted returns a copy safe to print: the fixed password is masked.
func (c Config) Redacted() Config {
	if c.Password.Fixed != "" {
		c.Password.Fixed = "********"
	}
	return c
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
