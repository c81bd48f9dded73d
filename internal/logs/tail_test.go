package logs

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func writeLog(t *testing.T, fsys afero.Fs, path string, lines ...string) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestLastReturnsFinalLines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeLog(t, fsys, "/logs/rarpack.log", "one", "two", "three", "four")

	lines, offset, err := Last(fsys, "/logs/rarpack.log", 2, nil)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "three" || lines[1] != "four" {
		t.Fatalf("unexpected lines: %v", lines)
	}
	if offset != int64(len("one\ntwo\nthree\nfour\n")) {
		t.Fatalf("unexpected offset %d", offset)
	}
}

func TestLastAppliesFilter(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeLog(t, fsys, "/log", "run_id=a start", "run_id=b start", "run_id=a done")

	lines, _, err := Last(fsys, "/log", 10, func(line string) bool { return strings.Contains(line, "run_id=a") })
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[1] != "run_id=a done" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := Last(afero.NewMemMapFs(), "/missing.log", 5, nil)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeLog(t, fsys, "/log", "old")
	_, offset, err := Last(fsys, "/log", 0, nil)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, fsys, "/log", offset, 10*time.Millisecond, nil, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := fsys.OpenFile("/log", os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("new\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for appended line")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("unexpected lines: %v", got)
	}
}
