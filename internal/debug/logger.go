// Package debug holds the process-wide logger. It discards everything until
// Init enables it.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Format selects the log record encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	logger  = slog.New(slog.DiscardHandler)
	enabled bool
	mu      sync.RWMutex
)

type ctxKey struct{}

// Init enables or disables debug logging to stderr.
func Init(enable bool) {
	InitWith(os.Stderr, FormatText, enable)
}

// InitWith enables or disables debug logging to w in the given format.
func InitWith(w io.Writer, format Format, enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	if !enable {
		logger = slog.New(slog.DiscardHandler)
		return
	}

	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if format == FormatJSON {
		logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }

func Info(msg string, args ...any) { Logger().Info(msg, args...) }

func Warn(msg string, args ...any) { Logger().Warn(msg, args...) }

func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// With returns the current logger with the given attributes.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// WithContext stores l in ctx for FromContext.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithContext, or the process logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return Logger()
}
