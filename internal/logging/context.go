package logging

import (
	"context"
	"log/slog"
)

// Keys shared by every component. Console formatting keys off these names.
const (
	FieldComponent    = "component"
	FieldRunID        = "run_id"
	FieldBook         = "book"
	FieldMode         = "mode"
	FieldHDContainer  = "hd_container"
	FieldArchiveBytes = "archive_bytes"
	// FieldEventType classifies a record for filtering, e.g. "book_failed".
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	runIDKey contextKey = iota
	bookKey
)

// WithRunID returns a context carrying the conversion run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithBook returns a context carrying the primary container path.
func WithBook(ctx context.Context, book string) context.Context {
	return context.WithValue(ctx, bookKey, book)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		fields = append(fields, String(FieldRunID, id))
	}
	if book, ok := ctx.Value(bookKey).(string); ok && book != "" {
		fields = append(fields, Book(book))
	}
	return fields
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
	return slog.New(logger.Handler().WithAttrs(fields))
}
