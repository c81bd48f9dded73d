package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"rarpack/internal/faults"
)

// Overrides carries command-line values. Nil pointers leave the config value untouched.
type Overrides struct {
	Sources          []string
	DestinationDir   *string
	Subfolder        *string
	Threads          *int
	FixedPassword    *string
	SplitSizeMB      *int
	RecoveryPct      *int
	Lock             *bool
	GenerateName     *bool
	GeneratePassword *bool
	NameLength       *int
	PasswordLength   *int
	CompressionLevel *int
	PerRunLog        *bool
	Executable       *string
	Debug            bool
}

// RunConfig is the immutable snapshot a single pack run works from.
type RunConfig struct {
	Executable       string
	GUIVariant       bool
	Sources          []string
	Mode             OutputMode
	DestinationDir   string
	Subfolder        string
	Prefix           string
	Threads          int
	StopGrace        time.Duration
	GenerateName     bool
	NameLength       int
	GeneratePassword bool
	PasswordLength   int
	UseFixedPassword bool
	FixedPassword    string
	CompressionLevel int
	Split            bool
	SplitSizeMB      int
	Recovery         bool
	RecoveryPct      int
	Lock             bool
	Debug            bool
	OutcomeMode      OutcomeMode
	HistoryFile      string
	PerRunDir        string
}

// RunConfig merges overrides onto the loaded configuration. A destination
// override selects destination mode; a subfolder override alone selects source mode.
func (c *Config) RunConfig(o Overrides) (RunConfig, error) {
	rc := RunConfig{
		Executable:       c.Compressor.Executable,
		Mode:             c.Output.Mode,
		DestinationDir:   c.Output.DestinationDir,
		Subfolder:        c.Output.Subfolder,
		Prefix:           c.Naming.Prefix,
		Threads:          c.Workers.Threads,
		StopGrace:        time.Duration(c.Workers.StopGraceSeconds) * time.Second,
		GenerateName:     c.Naming.GenerateName,
		NameLength:       c.Naming.NameLength,
		GeneratePassword: c.Password.Generate,
		PasswordLength:   c.Password.Length,
		UseFixedPassword: c.Password.UseFixed,
		FixedPassword:    c.Password.Fixed,
		CompressionLevel: c.Archive.CompressionLevel,
		Split:            c.Archive.Split,
		SplitSizeMB:      c.Archive.SplitSizeMB,
		Recovery:         c.Archive.Recovery,
		RecoveryPct:      c.Archive.RecoveryPct,
		Lock:             c.Archive.Lock,
		Debug:            o.Debug,
		OutcomeMode:      c.Outcome.Mode,
		HistoryFile:      c.Outcome.HistoryFile,
		PerRunDir:        c.Outcome.PerRunDir,
	}

	if o.Executable != nil {
		rc.Executable = strings.TrimSpace(*o.Executable)
	}
	if o.Subfolder != nil {
		rc.Subfolder = strings.TrimSpace(*o.Subfolder)
		rc.Mode = OutputSource
	}
	if o.DestinationDir != nil {
		expanded, err := expandPath(strings.TrimSpace(*o.DestinationDir))
		if err != nil {
			return RunConfig{}, faults.Wrap(faults.ErrConfiguration, "config", "destination", "Invalid destination", err)
		}
		rc.DestinationDir = expanded
		rc.Mode = OutputDestination
	}
	if o.Threads != nil {
		rc.Threads = ClampThreads(*o.Threads)
	}
	if o.FixedPassword != nil {
		rc.FixedPassword = *o.FixedPassword
		rc.UseFixedPassword = rc.FixedPassword != ""
	}
	if o.SplitSizeMB != nil {
		rc.SplitSizeMB = *o.SplitSizeMB
		rc.Split = rc.SplitSizeMB > 0
	}
	if o.RecoveryPct != nil {
		rc.RecoveryPct = *o.RecoveryPct
		rc.Recovery = rc.RecoveryPct > 0
	}
	if o.Lock != nil {
		rc.Lock = *o.Lock
	}
	if o.GenerateName != nil {
		rc.GenerateName = *o.GenerateName
	}
	if o.GeneratePassword != nil {
		rc.GeneratePassword = *o.GeneratePassword
	}
	if o.NameLength != nil {
		rc.NameLength = *o.NameLength
	}
	if o.PasswordLength != nil {
		rc.PasswordLength = *o.PasswordLength
	}
	if o.CompressionLevel != nil {
		rc.CompressionLevel = *o.CompressionLevel
	}
	if o.PerRunLog != nil {
		if *o.PerRunLog {
			rc.OutcomeMode = OutcomePerRun
		} else {
			rc.OutcomeMode = OutcomeHistory
		}
	}

	rc.GUIVariant = strings.HasSuffix(strings.ToLower(rc.Executable), "winrar.exe")

	rc.Sources = make([]string, 0, len(o.Sources))
	for _, source := range o.Sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		expanded, err := expandPath(source)
		if err != nil {
			return RunConfig{}, faults.Wrap(faults.ErrConfiguration, "config", "sources", "Invalid input folder", err)
		}
		rc.Sources = append(rc.Sources, expanded)
	}
	return rc, nil
}

// Validate checks the folders a run depends on.
func (rc RunConfig) Validate() error {
	if strings.TrimSpace(rc.Executable) == "" {
		return faults.Wrap(faults.ErrConfiguration, "config", "validate", "No compressor executable configured", nil)
	}
	if len(rc.Sources) == 0 {
		return faults.Wrap(faults.ErrConfiguration, "config", "validate", "You need to provide at least one input folder", nil)
	}
	for _, source := range rc.Sources {
		if err := requireDir(source, unix.R_OK|unix.X_OK); err != nil {
			return faults.Wrap(faults.ErrConfiguration, "config", "validate", fmt.Sprintf("Input folder %s is not usable", source), err)
		}
	}
	if err := validateSubfolder(rc.Subfolder); err != nil {
		return faults.Wrap(faults.ErrConfiguration, "config", "validate", "Invalid rar folder", err)
	}
	if rc.CompressionLevel < 0 || rc.CompressionLevel > 5 {
		return faults.Wrap(faults.ErrConfiguration, "config", "validate", fmt.Sprintf("Compression level must be between 0 and 5, got %d", rc.CompressionLevel), nil)
	}
	if rc.Mode == OutputDestination {
		if rc.DestinationDir == "" {
			return faults.Wrap(faults.ErrConfiguration, "config", "validate", "No destination folder given (use --dst-path or --rar-folder)", nil)
		}
		if err := requireDir(rc.DestinationDir, unix.W_OK|unix.X_OK); err != nil {
			return faults.Wrap(faults.ErrConfiguration, "config", "validate", fmt.Sprintf("Destination folder %s is not writable", rc.DestinationDir), err)
		}
	}
	return nil
}

func requireDir(path string, mode uint32) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return unix.Access(path, mode)
}
