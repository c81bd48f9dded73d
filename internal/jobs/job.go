package jobs

import (
	"fmt"
	"path/filepath"
	"strconv"

	"rarpack/internal/config"
	"rarpack/internal/discovery"
	"rarpack/internal/faults"
)

// ArchiveExtension is appended to the archive name in the argument vector.
const ArchiveExtension = ".rar"

// Job is a fully parameterized compression task derived from one Entry.
type Job struct {
	SourcePath        string
	IsDir             bool
	DestinationFolder string
	ArchiveName       string
	Password          string
	Args              []string
}

// ArchivePath is the archive path handed to the compressor.
func (j Job) ArchivePath() string {
	return filepath.Join(j.DestinationFolder, j.ArchiveName+ArchiveExtension)
}

// Factory builds jobs for one run.
type Factory struct {
	cfg    config.RunConfig
	layout Layout
	gen    Generator
}

// NewFactory returns a factory; a nil generator uses crypto/rand.
func NewFactory(cfg config.RunConfig, gen Generator) *Factory {
	if gen == nil {
		gen = CryptoGenerator{}
	}
	return &Factory{cfg: cfg, layout: NewLayout(cfg), gen: gen}
}

// Layout exposes the destination mapping used by the factory.
func (f *Factory) Layout() Layout {
	return f.layout
}

// Build derives the job for entry.
func (f *Factory) Build(entry discovery.Entry) (Job, error) {
	job := Job{
		SourcePath:        entry.Path,
		IsDir:             entry.IsDir,
		DestinationFolder: f.layout.DestinationFolder(entry),
	}

	if f.cfg.GenerateName {
		name, err := f.gen.String(f.cfg.NameLength)
		if err != nil {
			return Job{}, faults.Wrap(faults.ErrLaunch, "jobs", "archive name", entry.Path, err)
		}
		job.ArchiveName = name
	} else {
		job.ArchiveName = entry.BaseName()
	}

	switch {
	case f.cfg.GeneratePassword:
		password, err := f.gen.String(f.cfg.PasswordLength)
		if err != nil {
			return Job{}, faults.Wrap(faults.ErrLaunch, "jobs", "password", entry.Path, err)
		}
		job.Password = password
	case f.cfg.UseFixedPassword && f.cfg.FixedPassword != "":
		job.Password = f.cfg.FixedPassword
	}

	job.Args = BuildArgs(f.cfg, job)
	return job, nil
}

// BuildArgs assembles the compressor argument vector. The order is fixed.
func BuildArgs(cfg config.RunConfig, job Job) []string {
	args := []string{"a", "-ep1"}
	if cfg.GUIVariant {
		args = append(args, "-ibck")
	}
	args = append(args, "-m"+strconv.Itoa(cfg.CompressionLevel))
	if job.Password != "" {
		args = append(args, "-hp"+job.Password)
	}
	if cfg.Split && cfg.SplitSizeMB > 0 {
		args = append(args, fmt.Sprintf("-v%dm", cfg.SplitSizeMB))
	}
	if job.IsDir {
		args = append(args, "-r")
	}
	if cfg.Lock {
		args = append(args, "-k")
	}
	if cfg.Recovery && cfg.RecoveryPct > 0 {
		args = append(args, fmt.Sprintf("-rr%dp", cfg.RecoveryPct))
	}
	return append(args, job.ArchivePath(), job.SourcePath)
}
