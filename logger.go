package denstream

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific helpers so that field names
// stay consistent across log lines.
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
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON lines to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable lines to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// LogSeed logs engine initialization.
func (l *Logger) LogSeed(ctx context.Context, points, clusters, noise int, timestamp int64, fallback bool) {
	l.InfoContext(ctx, "seeded potential micro-clusters",
		"points", points,
		"clusters", clusters,
		"noise", noise,
		"timestamp", timestamp,
		"fallback", fallback,
	)
}

// LogPromotion logs an outlier cluster becoming a potential cluster.
func (l *Logger) LogPromotion(ctx context.Context, id uint64, weight float64, timestamp int64) {
	l.DebugContext(ctx, "promoted outlier micro-cluster",
		"id", id,
		"weight", weight,
		"timestamp", timestamp,
	)
}

// LogSweep logs a maintenance sweep.
func (l *Logger) LogSweep(ctx context.Context, timestamp int64, prunedPotential, prunedOutlier, potential, outlier int) {
	if prunedPotential+prunedOutlier == 0 {
		l.DebugContext(ctx, "maintenance sweep",
			"timestamp", timestamp,
			"potential", potential,
			"outlier", outlier,
		)
		return
	}
	l.InfoContext(ctx, "maintenance sweep pruned micro-clusters",
		"timestamp", timestamp,
		"pruned_potential", prunedPotential,
		"pruned_outlier", prunedOutlier,
		"potential", potential,
		"outlier", outlier,
	)
}
