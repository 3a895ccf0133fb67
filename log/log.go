// Package log builds the process logger and the batch pipeline that persists
// log records to the database through the writer session of the pool.
package log

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/caasmo/litepool/config"
	phuslog "github.com/phuslu/log"
)

// DefaultLoggerOptions removes the time attribute; the process supervisor
// adds its own timestamps.
var DefaultLoggerOptions = &slog.HandlerOptions{
	Level: slog.LevelDebug,
	ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		return a
	},
}

// NewHandler returns the handler for format writing to w. level may be
// changed at runtime.
func NewHandler(format string, level slog.Leveler, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: DefaultLoggerOptions.ReplaceAttr,
	}
	if format == config.FormatJSON {
		return phuslog.SlogNewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Fanout sends each record to every handler that accepts its level.
type Fanout []slog.Handler

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards r to every enabled handler. A failing handler does not stop
// the others; their errors are joined.
func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f Fanout) WithGroup(name string) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
