package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rarpack/internal/config"
	"rarpack/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

// ensureConfig loads .env from the working directory first so the
// RARPACK_* fallbacks apply during normalization.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.configErr = err
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// diagnosticLogger writes to the configured log file, falling back to a
// stderr logger when the file cannot be opened.
func (c *commandContext) diagnosticLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		verbose := c.verbose != nil && *c.verbose
		logger, err := logging.NewFromConfig(c.config, verbose)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
			logging.WarnWithContext(logger, "diagnostic log file unavailable", "log_open_failed",
				"check paths.log_dir permissions", logging.Error(err))
		}
		c.logger = logger
	})
	return c.logger
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
