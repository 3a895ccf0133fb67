package pool

import "log/slog"

type options struct {
	logger *slog.Logger
	name   string
}

// Option configures a SimplePool or DoublePool.
type Option func(*options)

// WithLogger sets the logger used for teardown failures.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithName labels the pool in log records.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func newOptions(opts []Option) options {
	o := options{name: "pool"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
