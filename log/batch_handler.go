package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caasmo/litepool/config"
)

// BatchHandler is a lightweight slog.Handler that sends records to a channel
// for batched processing by a Daemon. Sends never block: a full channel drops
// the record.
type BatchHandler struct {
	configProvider *config.Provider   // For dynamic log levels
	recordChan     chan<- slog.Record // Write-end of the channel, provided by Daemon
	daemonCtx      context.Context    // Context from daemon for shutdown detection
	groups         []string
	// levels[i] holds the attrs added while groups[:i] were open, so
	// len(levels) == len(groups)+1.
	levels [][]slog.Attr
}

// NewBatchHandler creates a new BatchHandler.
//
// configProvider: An instance of the configuration provider for dynamic log levels.
// recordChan: The write-end of a buffered channel where slog.Records will be sent.
// daemonCtx: Context from daemon to detect shutdown state.
// If any parameter is nil, this function will panic.
func NewBatchHandler(configProvider *config.Provider, recordChan chan<- slog.Record, daemonCtx context.Context) *BatchHandler {
	if configProvider == nil {
		panic("batchhandler: configProvider cannot be nil")
	}
	if recordChan == nil {
		panic("batchhandler: recordChan cannot be nil")
	}
	if daemonCtx == nil {
		panic("batchhandler: daemonCtx cannot be nil")
	}

	return &BatchHandler{
		configProvider: configProvider,
		recordChan:     recordChan,
		daemonCtx:      daemonCtx,
		levels:         [][]slog.Attr{nil},
	}
}

// Enabled consults the config provider to get the current batch level.
func (h *BatchHandler) Enabled(_ context.Context, level slog.Level) bool {
	conf := h.configProvider.Get()
	return level >= conf.Log.Batch.Level.Level
}

// Handle attempts a non-blocking send of r to the daemon. It fails if the
// daemon is shutting down or the channel is full. Shutdown is checked first
// since select does not pick cases in order.
func (h *BatchHandler) Handle(_ context.Context, r slog.Record) error {
	if h.daemonCtx.Err() != nil {
		return fmt.Errorf("daemon shutting down, dropping log record")
	}

	if len(h.groups) > 0 || len(h.levels[0]) > 0 {
		var own []slog.Attr
		r.Attrs(func(a slog.Attr) bool {
			own = append(own, a)
			return true
		})
		out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
		out.AddAttrs(h.build(own)...)
		r = out
	}

	select {
	case h.recordChan <- r:
		return nil
	default:
		return fmt.Errorf("log channel full, dropping record")
	}
}

func (h *BatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	levels := append([][]slog.Attr(nil), h.levels...)
	last := len(levels) - 1
	levels[last] = append(append([]slog.Attr(nil), levels[last]...), attrs...)
	return h.with(h.groups, levels)
}

// WithGroup qualifies the attributes added afterwards with name.
func (h *BatchHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(append([]string(nil), h.groups...), name)
	levels := append(append([][]slog.Attr(nil), h.levels...), nil)
	return h.with(groups, levels)
}

func (h *BatchHandler) with(groups []string, levels [][]slog.Attr) *BatchHandler {
	return &BatchHandler{
		configProvider: h.configProvider,
		recordChan:     h.recordChan,
		daemonCtx:      h.daemonCtx,
		groups:         groups,
		levels:         levels,
	}
}

// build nests own and the collected attrs into one group per open group,
// innermost first. Empty groups are dropped.
func (h *BatchHandler) build(own []slog.Attr) []slog.Attr {
	last := len(h.groups)
	cur := append(append([]slog.Attr(nil), h.levels[last]...), own...)
	for i := last - 1; i >= 0; i-- {
		outer := append([]slog.Attr(nil), h.levels[i]...)
		if len(cur) > 0 {
			args := make([]any, len(cur))
			for j, a := range cur {
				args[j] = a
			}
			outer = append(outer, slog.Group(h.groups[i], args...))
		}
		cur = outer
	}
	return cur
}
