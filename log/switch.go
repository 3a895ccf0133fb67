package log

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Switch is a handler whose target can be replaced after loggers built on it
// have been handed out. Handlers derived with WithAttrs or WithGroup follow
// the replacement.
type Switch struct {
	target *atomic.Pointer[slog.Handler]
	ops    []func(slog.Handler) slog.Handler
	cache  *atomic.Pointer[derived]
}

// derived caches the handler built by ops for one target.
type derived struct {
	from *slog.Handler
	to   slog.Handler
}

// NewSwitch returns a Switch forwarding to h.
func NewSwitch(h slog.Handler) *Switch {
	s := &Switch{
		target: new(atomic.Pointer[slog.Handler]),
		cache:  new(atomic.Pointer[derived]),
	}
	s.target.Store(&h)
	return s
}

// Set replaces the target of s and of every handler derived from it.
func (s *Switch) Set(h slog.Handler) {
	s.target.Store(&h)
}

func (s *Switch) current() slog.Handler {
	base := s.target.Load()
	if len(s.ops) == 0 {
		return *base
	}
	if d := s.cache.Load(); d != nil && d.from == base {
		return d.to
	}
	h := *base
	for _, op := range s.ops {
		h = op(h)
	}
	s.cache.Store(&derived{from: base, to: h})
	return h
}

func (s *Switch) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *Switch) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

func (s *Switch) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	return s.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (s *Switch) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return s.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s *Switch) with(op func(slog.Handler) slog.Handler) *Switch {
	ops := make([]func(slog.Handler) slog.Handler, len(s.ops), len(s.ops)+1)
	copy(ops, s.ops)
	return &Switch{
		target: s.target,
		ops:    append(ops, op),
		cache:  new(atomic.Pointer[derived]),
	}
}
