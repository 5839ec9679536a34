// Package logging wires log/slog with a tint handler and carries loggers in
// context.Context via slog-context.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
	slogctx "github.com/veqryn/slog-context"
)

// TimeFormat is the timestamp layout used by console output.
const TimeFormat = "2006-01-02 15:04:05.000"

// Options configures a logger.
type Options struct {
	Level     slog.Level
	NoColor   bool
	AddSource bool
}

// New returns a logger writing tinted records to w. Attributes added to a
// context with slogctx.With are appended to every record logged with that
// context.
func New(w io.Writer, opts Options) *slog.Logger {
	h := tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: TimeFormat,
		AddSource:  opts.AddSource,
		NoColor:    opts.NoColor,
	})
	return slog.New(slogctx.NewHandler(h, nil))
}

// Setup installs a logger as the process default and returns ctx carrying it.
func Setup(ctx context.Context, w io.Writer, opts Options) context.Context {
	logger := New(w, opts)
	slog.SetDefault(logger)
	return slogctx.NewCtx(ctx, logger)
}

// Discard returns ctx carrying a logger that drops everything.
func Discard(ctx context.Context) context.Context {
	return slogctx.NewCtx(ctx, slog.New(slog.DiscardHandler))
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
}
