package pylon

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps log/slog with the level-method surface air's bespoke
// Logger exposed (Debug/Info/Warn/Error), so the call-site texture a
// teacher-trained reader expects survives the move off a hand-rolled
// template logger and onto the standard structured-logging library.
// Every call is tagged with the active request's ID when one is present
// in ctx, mirroring air's per-request logging correlation.
type Logger struct {
	slog    *slog.Logger
	enabled bool
}

// NewLogger returns a Logger writing JSON lines to os.Stdout, named
// appName.
func NewLogger(appName string) *Logger {
	h := slog.NewJSONHandler(os.Stdout, nil)
	return &Logger{
		slog:    slog.New(h).With("app_name", appName),
		enabled: true,
	}
}

// SetEnabled toggles whether log calls are emitted at all, mirroring
// air.Air.LoggerEnabled.
func (l *Logger) SetEnabled(enabled bool) { l.enabled = enabled }

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args...)
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.enabled {
		return
	}
	if req, ok := RequestFromContext(ctx); ok {
		args = append(args, "request_id", req.ID)
	}
	l.slog.Log(ctx, level, msg, args...)
}
