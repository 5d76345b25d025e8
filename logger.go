package blockalloc

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with allocator-specific helpers.
// This keeps field names consistent across attach, detach and exhaustion events.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// ParseLogLevel maps "debug", "info", "warn" and "error" to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// LogAttach logs the outcome of building the arena.
func (l *Logger) LogAttach(ctx context.Context, cfg Config, pinned bool, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "attach failed",
			"heap_size", humanize.IBytes(cfg.HeapSize),
			"pin", cfg.Pin.String(),
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "attach completed",
		"heap_size", humanize.IBytes(cfg.HeapSize),
		"block_size", cfg.BlockSize,
		"blocks", cfg.NumBlocks(),
		"pinned", pinned,
		"prefault", cfg.Prefault,
		"elapsed", elapsed,
	)
}

// LogDetach logs the release of the arena.
func (l *Logger) LogDetach(ctx context.Context, liveAllocations int, liveBytes uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "detach failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "detach completed",
		"live_allocations", liveAllocations,
		"live_bytes", humanize.IBytes(liveBytes),
	)
}

// LogExhausted logs an allocation that could not be satisfied.
func (l *Logger) LogExhausted(ctx context.Context, size, blocks, freeBlocks, largestRun uint64, err error) {
	l.WarnContext(ctx, "allocation failed",
		"size", humanize.IBytes(size),
		"blocks", blocks,
		"free_blocks", freeBlocks,
		"largest_free_run", largestRun,
		"error", err,
	)
}

// LogPinFailure logs a pin failure that was tolerated by PinBestEffort.
func (l *Logger) LogPinFailure(ctx context.Context, size uint64, err error) {
	l.WarnContext(ctx, "arena pin failed, continuing unpinned",
		"heap_size", humanize.IBytes(size),
		"error", err,
	)
}
