package discovery_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"rarpack/internal/discovery"
	"rarpack/internal/faults"
)

func seed(t *testing.T, fs afero.Fs, dirs []string, files []string) {
	t.Helper()
	for _, dir := range dirs {
		require.NoError(t, fs.MkdirAll(dir, 0o755))
	}
	for _, file := range files {
		require.NoError(t, afero.WriteFile(fs, file, []byte("x"), 0o644))
	}
}

func names(entries []discovery.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestDiscoverOrdersDirectoriesFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs,
		[]string{"/src/zeta", "/src/movieA", "/src/_rar"},
		[]string{"/src/file.txt", "/src/.hidden", "/src/alpha.bin"},
	)

	result := discovery.DiscoverWithFS(fs, []string{"/src"}, discovery.Options{ReservedName: "_rar"})

	require.Empty(t, result.Errors)
	require.Equal(t, []string{"movieA", "zeta", ".hidden", "alpha.bin", "file.txt"}, names(result.Entries))
	require.True(t, result.Entries[0].IsDir)
	require.Equal(t, "/src", result.Entries[0].Source)
	require.Equal(t, "/src/movieA", result.Entries[0].Path)
}

func TestDiscoverKeepsFolderOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, nil, []string{"/b/one", "/a/two"})

	result := discovery.DiscoverWithFS(fs, []string{"/b", "/a"}, discovery.Options{})

	require.Equal(t, []string{"/b/one", "/a/two"}, []string{result.Entries[0].Path, result.Entries[1].Path})
}

func TestDiscoverExcludesAlreadyCompressed(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, []string{"/src/done", "/src/todo", "/dst/RAR_done"}, nil)

	exclude := func(e discovery.Entry) bool {
		exists, _ := afero.DirExists(fs, filepath.Join("/dst", "RAR_"+e.BaseName()))
		return exists
	}
	result := discovery.DiscoverWithFS(fs, []string{"/src"}, discovery.Options{Exclude: exclude})

	require.Equal(t, []string{"todo"}, names(result.Entries))
	require.Equal(t, []string{"done"}, names(result.Skipped))
}

func TestDiscoverSkipsUnreadableFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, nil, []string{"/ok/file"})

	result := discovery.DiscoverWithFS(fs, []string{"/missing", "/ok"}, discovery.Options{})

	require.Len(t, result.Errors, 1)
	require.True(t, errors.Is(result.Errors[0], faults.ErrDiscovery))
	require.Equal(t, []string{"file"}, names(result.Entries))
}

// deniedFs refuses to open the listed paths, like entries without read
// permission.
type deniedFs struct {
	afero.Fs
	denied map[string]bool
}

func (d deniedFs) Open(name string) (afero.File, error) {
	if d.denied[name] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.Open(name)
}

func TestDiscoverLeavesOutUnreadableEntries(t *testing.T) {
	mem := afero.NewMemMapFs()
	seed(t, mem, []string{"/src/locked", "/src/open"}, []string{"/src/secret.bin", "/src/plain.bin"})
	fs := deniedFs{Fs: mem, denied: map[string]bool{"/src/locked": true, "/src/secret.bin": true}}

	result := discovery.DiscoverWithFS(fs, []string{"/src"}, discovery.Options{})

	require.Empty(t, result.Errors)
	require.Empty(t, result.Skipped)
	require.Equal(t, []string{"open", "plain.bin"}, names(result.Entries))
}

func TestDiscoverPrepareFailureSkipsFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, nil, []string{"/a/one", "/b/two"})

	prepare := func(source string) error {
		if source == "/a" {
			return os.ErrPermission
		}
		return fs.MkdirAll(filepath.Join(source, "_rar"), 0o755)
	}
	result := discovery.DiscoverWithFS(fs, []string{"/a", "/b"}, discovery.Options{ReservedName: "_rar", PrepareFolder: prepare})

	require.Len(t, result.Errors, 1)
	require.True(t, errors.Is(result.Errors[0], faults.ErrOutputFolder))
	require.True(t, errors.Is(result.Errors[0], os.ErrPermission))
	require.Equal(t, []string{"two"}, names(result.Entries))
}

func TestDiscoverSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")))

	result := discovery.Discover([]string{dir}, discovery.Options{})

	require.Equal(t, []string{"real"}, names(result.Entries))
}

func TestEntryBaseName(t *testing.T) {
	tests := []struct {
		entry discovery.Entry
		want  string
	}{
		{discovery.Entry{Path: "/src/movieA", IsDir: true}, "movieA"},
		{discovery.Entry{Path: "/src/dir.v2", IsDir: true}, "dir.v2"},
		{discovery.Entry{Path: "/src/file.txt"}, "file"},
		{discovery.Entry{Path: "/src/archive.tar.gz"}, "archive.tar"},
		{discovery.Entry{Path: "/src/.bashrc"}, ".bashrc"},
		{discovery.Entry{Path: "/src/README"}, "README"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.entry.BaseName(), tt.entry.Path)
	}
}
