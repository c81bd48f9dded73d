package faults_test

import (
	"errors"
	"strings"
	"testing"

	"rarpack/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("permission denied")
	err := faults.Wrap(faults.ErrOutputFolder, "discovery", "mkdir", "create _rar", base)
	if !errors.Is(err, faults.ErrOutputFolder) {
		t.Fatalf("expected kind to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to be retained, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"discovery", "mkdir", "create _rar", "permission denied"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := faults.Wrap(faults.ErrLaunch, "", "", "", nil)
	if err.Error() != "launch error: failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		kind  error
		fatal bool
	}{
		{faults.ErrLogFile, true},
		{faults.ErrExecutableMissing, true},
		{faults.ErrConfiguration, true},
		{faults.ErrDiscovery, false},
		{faults.ErrOutputFolder, false},
		{faults.ErrLaunch, false},
		{faults.ErrCompression, false},
	}
	for _, tc := range cases {
		err := faults.Wrap(tc.kind, "packer", "run", "x", nil)
		if got := faults.IsFatal(err); got != tc.fatal {
			t.Fatalf("IsFatal(%v) = %v, want %v", tc.kind, got, tc.fatal)
		}
	}
	if faults.IsFatal(nil) {
		t.Fatal("nil must not be fatal")
	}
}

func TestDetails(t *testing.T) {
	err := faults.Wrap(faults.ErrLogFile, "outcome", "open", "history.csv", errors.New("read-only"))
	details := faults.Details(err)
	if details.Kind != "log file error" {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Hint == "" {
		t.Fatal("expected hint for known kind")
	}
	if got := faults.Details(errors.New("plain")); got.Kind != "" || got.Message != "plain" {
		t.Fatalf("unexpected details for untagged error: %#v", got)
	}
}
