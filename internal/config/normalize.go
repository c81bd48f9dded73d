package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted when the matching config value is empty.
const (
	EnvPassword   = "RARPACK_PASSWORD"
	EnvNtfyTopic  = "RARPACK_NTFY_TOPIC"
	EnvCompressor = "RARPACK_COMPRESSOR"
)

func (c *Config) normalize() error {
	if value, ok := os.LookupEnv(EnvCompressor); ok && strings.TrimSpace(value) != "" {
		c.Compressor.Executable = strings.TrimSpace(value)
	}
	c.Compressor.Executable = strings.TrimSpace(c.Compressor.Executable)
	if strings.HasPrefix(c.Compressor.Executable, "~") {
		expanded, err := expandPath(c.Compressor.Executable)
		if err != nil {
			return fmt.Errorf("compressor.executable: %w", err)
		}
		c.Compressor.Executable = expanded
	}

	if c.Password.Fixed == "" {
		if value, ok := os.LookupEnv(EnvPassword); ok && value != "" {
			c.Password.Fixed = value
			c.Password.UseFixed = true
		}
	}
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(EnvNtfyTopic); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}

	c.Output.Mode = OutputMode(strings.ToLower(strings.TrimSpace(string(c.Output.Mode))))
	if c.Output.Mode == "" {
		c.Output.Mode = OutputDestination
	}
	c.Output.Subfolder = strings.TrimSpace(c.Output.Subfolder)
	if c.Output.Subfolder == "" {
		c.Output.Subfolder = defaultSubfolder
	}

	c.Outcome.Mode = OutcomeMode(strings.ToLower(strings.TrimSpace(string(c.Outcome.Mode))))
	if c.Outcome.Mode == "" {
		c.Outcome.Mode = OutcomeHistory
	}

	c.Workers.Threads = ClampThreads(c.Workers.Threads)

	pathFields := []struct {
		name  string
		value *string
	}{
		{"output.destination_dir", &c.Output.DestinationDir},
		{"outcome.history_file", &c.Outcome.HistoryFile},
		{"outcome.per_run_dir", &c.Outcome.PerRunDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.state_dir", &c.Paths.StateDir},
	}
	for _, field := range pathFields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	return nil
}
