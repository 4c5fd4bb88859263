package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTaskID is the standardized structured logging key for task identifiers.
	FieldTaskID = "task_id"
	// FieldProjectID is the standardized structured logging key for project identifiers.
	FieldProjectID = "project_id"
	// FieldDictionaryID is the standardized structured logging key for dictionary identifiers.
	FieldDictionaryID = "dictionary_id"
)

type taskIDKey struct{}

// WithTaskID stores a task identifier on the context for log correlation.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, taskID)
}

// TaskIDFromContext extracts a task identifier previously stored on the context.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(taskIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with correlation fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := TaskIDFromContext(ctx); ok {
		return logger.With(slog.String(FieldTaskID, id))
	}
	return logger
}
