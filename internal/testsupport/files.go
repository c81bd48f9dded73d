package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := []byte(strings.Repeat("B", int(size)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SourceTree creates a source folder under the config base directory. Names
// ending in "/" become directories holding one file; others become files.
func SourceTree(t testing.TB, root string, names ...string) string {
	t.Helper()

	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", root, err)
	}
	for _, name := range names {
		if dir, ok := strings.CutSuffix(name, "/"); ok {
			WriteFile(t, filepath.Join(root, dir, "content.bin"), 16)
			continue
		}
		WriteFile(t, filepath.Join(root, name), 16)
	}
	return root
}
