package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Compressor.Executable) == "" {
		return errors.New("compressor.executable must be set")
	}
	if c.Archive.CompressionLevel < 0 || c.Archive.CompressionLevel > 5 {
		return fmt.Errorf("archive.compression_level must be between 0 and 5, got %d", c.Archive.CompressionLevel)
	}
	if c.Archive.SplitSizeMB < 0 {
		return errors.New("archive.split_size_mb must be zero or positive")
	}
	if c.Archive.RecoveryPct < 0 || c.Archive.RecoveryPct > 100 {
		return fmt.Errorf("archive.recovery_pct must be between 0 and 100, got %d", c.Archive.RecoveryPct)
	}
	if c.Naming.NameLength <= 0 {
		return errors.New("naming.name_length must be positive")
	}
	if c.Password.Length <= 0 {
		return errors.New("password.length must be positive")
	}
	if c.Password.UseFixed && c.Password.Fixed == "" {
		return fmt.Errorf("password.use_fixed requires password.fixed or %s", EnvPassword)
	}
	switch c.Output.Mode {
	case OutputDestination, OutputSource:
	default:
		return fmt.Errorf("output.mode must be %q or %q, got %q", OutputDestination, OutputSource, c.Output.Mode)
	}
	if err := validateSubfolder(c.Output.Subfolder); err != nil {
		return err
	}
	if c.Workers.StopGraceSeconds < 0 {
		return errors.New("workers.stop_grace_seconds must be zero or positive")
	}
	switch c.Outcome.Mode {
	case OutcomeHistory:
		if c.Outcome.HistoryFile == "" {
			return errors.New("outcome.history_file must be set")
		}
	case OutcomePerRun:
		if c.Outcome.PerRunDir == "" {
			return errors.New("outcome.per_run_dir must be set")
		}
	default:
		return fmt.Errorf("outcome.mode must be %q or %q, got %q", OutcomeHistory, OutcomePerRun, c.Outcome.Mode)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func validateSubfolder(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("output.subfolder %q is not a usable folder name", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("output.subfolder %q must not contain path separators", name)
	}
	return nil
}
