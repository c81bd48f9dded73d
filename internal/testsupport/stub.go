package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// ArchivingStub is a compressor script body that creates the archive named by
// its second to last argument. Sources whose name starts with "fail" exit 3
// after writing a partial archive.
const ArchivingStub = `archive=""
prev=""
for arg in "$@"; do
  archive="$prev"
  prev="$arg"
done
: > "$archive"
case "${prev##*/}" in
  fail*) echo "simulated failure" >&2; exit 3 ;;
esac
exit 0`

// WriteStub writes an executable /bin/sh script into dir and returns its path.
func WriteStub(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	script := []byte("#!/bin/sh\n" + body + "\n")
	if err := os.WriteFile(target, script, 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}
