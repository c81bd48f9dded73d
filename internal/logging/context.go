package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a record for filtering (job_started, job_failed, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries a short remediation hint on warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the classified error sentinel.
	FieldErrorKind = "error_kind"
	// FieldRunID identifies one pack invocation.
	FieldRunID = "run_id"
	// FieldSlot is the worker slot a job ran in.
	FieldSlot = "slot"
	// FieldSource is the absolute path of the entry being compressed.
	FieldSource = "source"
)

type runIDKey struct{}

// WithRunID tags ctx with the identifier of the current pack run.
func WithRunID(ctx context.Context, runID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := RunIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldRunID, id)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
