package jobs

import (
	"path/filepath"

	"github.com/spf13/afero"

	"rarpack/internal/config"
	"rarpack/internal/discovery"
)

// Layout maps entries to their destination folders.
type Layout struct {
	Mode           config.OutputMode
	DestinationDir string
	Subfolder      string
	Prefix         string
}

// NewLayout derives the layout of a run.
func NewLayout(cfg config.RunConfig) Layout {
	return Layout{
		Mode:           cfg.Mode,
		DestinationDir: cfg.DestinationDir,
		Subfolder:      cfg.Subfolder,
		Prefix:         cfg.Prefix,
	}
}

// Root is the folder that holds one destination folder per entry of source.
func (l Layout) Root(source string) string {
	if l.Mode == config.OutputSource {
		return filepath.Join(source, l.Subfolder)
	}
	return l.DestinationDir
}

// FolderName is prefix+baseName in destination mode and baseName in source mode.
func (l Layout) FolderName(entry discovery.Entry) string {
	if l.Mode == config.OutputSource {
		return entry.BaseName()
	}
	return l.Prefix + entry.BaseName()
}

// DestinationFolder is the absolute folder the entry's archive volumes land in.
func (l Layout) DestinationFolder(entry discovery.Entry) string {
	return filepath.Join(l.Root(entry.Source), l.FolderName(entry))
}

// Compressed reports whether a previous run already produced output for entry.
func (l Layout) Compressed(fs afero.Fs, entry discovery.Entry) bool {
	exists, err := afero.Exists(fs, l.DestinationFolder(entry))
	return err == nil && exists
}
