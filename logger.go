package ontoinfer

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/ontoinfer/partition"
)

// Logger wraps slog.Logger with ontoinfer-specific context.
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
	return NewJSONLoggerTo(os.Stderr, level)
}

// NewJSONLoggerTo is NewJSONLogger writing to w.
func NewJSONLoggerTo(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRunID adds a run id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithConcept adds a concept id field to the logger.
func (l *Logger) WithConcept(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("concept", id),
	}
}

// LogTreeBuild logs the result of assembling a concept tree.
func (l *Logger) LogTreeBuild(ctx context.Context, nodes, pruned int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "tree build failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "tree built",
			"nodes", nodes,
			"pruned", pruned,
		)
	}
}

// LogSkip logs a concept left out because one side of its partition is
// empty.
func (l *Logger) LogSkip(ctx context.Context, s partition.Skip) {
	l.InfoContext(ctx, "concept skipped",
		"concept", s.ConceptID,
		"name", s.Name,
		"in", s.In,
		"out", s.Out,
	)
}

// LogConcept logs the completion of one concept. memory is the working
// memory still reserved by other concepts at that point.
func (l *Logger) LogConcept(ctx context.Context, id string, in, out int, memory int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "concept failed",
			"concept", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "concept completed",
			"concept", id,
			"in", in,
			"out", out,
			"memory_bytes", memory,
		)
	}
}

// LogRun logs a run summary. peakMemory is the highest working memory
// reserved by the engine so far.
func (l *Logger) LogRun(ctx context.Context, processed, skipped int, peakMemory int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run failed",
			"processed", processed,
			"skipped", skipped,
			"peak_memory_bytes", peakMemory,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "run completed",
			"processed", processed,
			"skipped", skipped,
			"peak_memory_bytes", peakMemory,
		)
	}
}

// LogScore logs a query scoring.
func (l *Logger) LogScore(ctx context.Context, id string, posterior float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "score failed",
			"concept", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "score completed",
			"concept", id,
			"posterior", posterior,
		)
	}
}
