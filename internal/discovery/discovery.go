package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"rarpack/internal/faults"
)

// Entry is one file or directory queued for compression.
type Entry struct {
	Path   string
	IsDir  bool
	Source string
}

// Name is the last path element.
func (e Entry) Name() string {
	return filepath.Base(e.Path)
}

// BaseName is the directory name, or the file name without its last
// extension. Names made only of an extension keep their full name.
func (e Entry) BaseName() string {
	name := e.Name()
	if e.IsDir {
		return name
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		return name
	}
	return base
}

// Options control which entries become part of the backlog.
type Options struct {
	// ReservedName is never queued; it holds archives produced by earlier runs.
	ReservedName string
	// PrepareFolder runs before a source folder is listed. An error skips the folder.
	PrepareFolder func(source string) error
	// Exclude reports entries that must not be queued, such as those already
	// compressed by a previous run.
	Exclude func(Entry) bool
}

// Result is the outcome of one discovery pass.
type Result struct {
	Entries []Entry
	Skipped []Entry
	Errors  []error
}

// Discover lists folders on the host filesystem.
func Discover(folders []string, opts Options) Result {
	return DiscoverWithFS(afero.NewOsFs(), folders, opts)
}

// DiscoverWithFS lists folders on fs in the supplied order.
func DiscoverWithFS(fs afero.Fs, folders []string, opts Options) Result {
	var result Result
	for _, folder := range folders {
		source, err := filepath.Abs(folder)
		if err != nil {
			result.Errors = append(result.Errors, faults.Wrap(faults.ErrDiscovery, "discovery", "resolve", folder, err))
			continue
		}
		if opts.PrepareFolder != nil {
			if err := opts.PrepareFolder(source); err != nil {
				result.Errors = append(result.Errors, faults.Wrap(faults.ErrOutputFolder, "discovery", "prepare", "Couldn't create rar folder in: "+source, err))
				continue
			}
		}
		entries, err := listFolder(fs, source)
		if err != nil {
			result.Errors = append(result.Errors, faults.Wrap(faults.ErrDiscovery, "discovery", "list", source, err))
			continue
		}
		for _, entry := range entries {
			if opts.ReservedName != "" && entry.Name() == opts.ReservedName {
				continue
			}
			if opts.Exclude != nil && opts.Exclude(entry) {
				result.Skipped = append(result.Skipped, entry)
				continue
			}
			result.Entries = append(result.Entries, entry)
		}
	}
	return result
}

func listFolder(fs afero.Fs, source string) ([]Entry, error) {
	infos, err := afero.ReadDir(fs, source)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		name := info.Name()
		if name == "." || name == ".." {
			continue
		}
		path := filepath.Join(source, name)
		if !readable(fs, path) {
			continue
		}
		entries = append(entries, Entry{
			Path:   path,
			IsDir:  info.IsDir(),
			Source: source,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// readable reports whether path can be opened for reading. Entries the
// compressor could not read are left out of the backlog.
func readable(fs afero.Fs, path string) bool {
	f, err := fs.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
