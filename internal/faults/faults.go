package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDiscovery         = errors.New("discovery error")
	ErrOutputFolder      = errors.New("output folder error")
	ErrLaunch            = errors.New("launch error")
	ErrCompression       = errors.New("compression failure")
	ErrLogFile           = errors.New("log file error")
	ErrExecutableMissing = errors.New("executable missing")
	ErrConfiguration     = errors.New("configuration error")
)

var kinds = []error{
	ErrDiscovery,
	ErrOutputFolder,
	ErrLaunch,
	ErrCompression,
	ErrLogFile,
	ErrExecutableMissing,
	ErrConfiguration,
}

var hints = map[error]string{
	ErrDiscovery:         "check that the source folder exists and is readable",
	ErrOutputFolder:      "check permissions on the destination or source folder",
	ErrLaunch:            "check the destination folder and the compressor executable",
	ErrCompression:       "inspect the compressor exit code; partial output was removed",
	ErrLogFile:           "check that the outcome log location is writable",
	ErrExecutableMissing: "install the compressor or set compressor.executable",
	ErrConfiguration:     "run 'rarpack config validate'",
}

// Wrap builds an error message carrying component and operation context while
// tagging it with kind for later classification. The cause, when present,
// stays reachable through errors.Is and errors.As.
func Wrap(kind error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if kind == nil {
		kind = ErrLaunch
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", kind, detail, err)
	}
	return fmt.Errorf("%w: %s", kind, detail)
}

// IsFatal reports whether err aborts the whole run rather than a single job or
// folder.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLogFile) ||
		errors.Is(err, ErrExecutableMissing) ||
		errors.Is(err, ErrConfiguration)
}

// Kind returns the sentinel err was tagged with, or nil.
func Kind(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// ErrorDetails is the structured view of a classified error used in logs.
type ErrorDetails struct {
	Kind    string
	Message string
	Hint    string
}

// Details extracts kind, message and remediation hint from err.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Message: strings.TrimSpace(err.Error())}
	if kind := Kind(err); kind != nil {
		details.Kind = kind.Error()
		details.Hint = hints[kind]
	}
	return details
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
