// Package logging wraps slog.Logger with vectable field names and
// per-operation helpers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with vectable-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Noop creates a Logger that discards all log output.
func Noop() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// OrNoop returns l, or a no-op logger when l is nil.
func OrNoop(l *Logger) *Logger {
	if l == nil || l.Logger == nil {
		return Noop()
	}
	return l
}

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", name),
	}
}

// WithOperation adds an operation field to the logger.
func (l *Logger) WithOperation(op string) *Logger {
	return &Logger{
		Logger: l.Logger.With("operation", op),
	}
}

func (l *Logger) logResult(ctx context.Context, msg string, err error, attrs ...any) {
	if err != nil {
		l.ErrorContext(ctx, msg+" failed", append(attrs, "error", err)...)
		return
	}
	l.DebugContext(ctx, msg+" completed", attrs...)
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, mode string, rows int64, version uint64, err error) {
	l.logResult(ctx, "add", err,
		"mode", mode,
		"rows", rows,
		"version", version,
	)
}

// LogMergeInsert logs a merge insert.
func (l *Logger) LogMergeInsert(ctx context.Context, on []string, inserted, updated, deleted int64, err error) {
	l.logResult(ctx, "merge insert", err,
		"on", on,
		"inserted", inserted,
		"updated", updated,
		"deleted", deleted,
	)
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, predicate string, deleted int64, err error) {
	l.logResult(ctx, "delete", err,
		"predicate", predicate,
		"deleted", deleted,
	)
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, predicate string, columns []string, updated int64, err error) {
	l.logResult(ctx, "update", err,
		"predicate", predicate,
		"columns", columns,
		"updated", updated,
	)
}

// LogRestore logs a restore of an older version.
func (l *Logger) LogRestore(ctx context.Context, from, version uint64, err error) {
	l.logResult(ctx, "restore", err,
		"from", from,
		"version", version,
	)
}

// LogCreateIndex logs an index build.
func (l *Logger) LogCreateIndex(ctx context.Context, name, indexType, column string, err error) {
	l.logResult(ctx, "create index", err,
		"index", name,
		"index_type", indexType,
		"column", column,
	)
}

// LogSearch logs a query.
func (l *Logger) LogSearch(ctx context.Context, kind string, limit int, err error) {
	l.logResult(ctx, "search", err,
		"kind", kind,
		"limit", limit,
	)
}

// LogCompaction logs a compaction run.
func (l *Logger) LogCompaction(ctx context.Context, fragmentsRemoved, fragmentsAdded int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compaction failed", "error", err)
		return
	}
	l.InfoContext(ctx, "compaction completed",
		"fragments_removed", fragmentsRemoved,
		"fragments_added", fragmentsAdded,
	)
}

// LogCleanup logs a cleanup run.
func (l *Logger) LogCleanup(ctx context.Context, oldVersions int, bytesRemoved int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cleanup failed", "error", err)
		return
	}
	l.InfoContext(ctx, "cleanup completed",
		"old_versions", oldVersions,
		"bytes_removed", bytesRemoved,
	)
}

// LogCommitConflict logs a lost optimistic commit that is about to be retried.
func (l *Logger) LogCommitConflict(ctx context.Context, version uint64, attempt int) {
	l.WarnContext(ctx, "commit conflict, retrying",
		"version", version,
		"attempt", attempt,
	)
}

// LogRequest logs a remote request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, elapsed time.Duration, err error) {
	l.logResult(ctx, "request", err,
		"method", method,
		"path", path,
		"status", status,
		"elapsed", elapsed,
	)
}
