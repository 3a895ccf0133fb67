package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSwitch_DerivedLoggersFollowSet(t *testing.T) {
	var before, after bytes.Buffer
	sw := NewSwitch(slog.NewTextHandler(&before, nil))
	logger := slog.New(sw).With("component", "stmtcache").WithGroup("stmt")

	logger.Info("first", "sql", "SELECT 1")
	sw.Set(slog.NewTextHandler(&after, nil))
	logger.Info("second", "sql", "SELECT 2")

	if !strings.Contains(before.String(), "msg=first component=stmtcache stmt.sql=\"SELECT 1\"") {
		t.Errorf("first target got %q", before.String())
	}
	if strings.Contains(before.String(), "second") {
		t.Errorf("first target got a record after Set: %q", before.String())
	}
	if !strings.Contains(after.String(), "msg=second component=stmtcache stmt.sql=\"SELECT 2\"") {
		t.Errorf("second target got %q", after.String())
	}
}

func TestSwitch_ReachesBatchHandler(t *testing.T) {
	var text bytes.Buffer
	base := slog.NewTextHandler(&text, nil)
	sw := NewSwitch(base)
	poolLogger := slog.New(sw).With("component", "pool")

	ch := make(chan slog.Record, 1)
	sw.Set(Fanout{base, NewBatchHandler(newTestConfigProvider(slog.LevelInfo), ch, context.Background())})
	poolLogger.Error("borrow failed", "err", "closed")

	select {
	case r := <-ch:
		if r.Message != "borrow failed" {
			t.Errorf("batch record message = %q", r.Message)
		}
		got := map[string]string{}
		r.Attrs(func(a slog.Attr) bool {
			got[a.Key] = a.Value.String()
			return true
		})
		if got["component"] != "pool" || got["err"] != "closed" {
			t.Errorf("batch record attrs = %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("record logged before the swap was built never reached the batch handler")
	}
	if !strings.Contains(text.String(), "borrow failed") {
		t.Errorf("base handler missed the record: %q", text.String())
	}
}

func TestSwitch_DisabledLevel(t *testing.T) {
	sw := NewSwitch(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	derived := sw.WithGroup("g")
	if derived.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(Info) = true under a warn handler")
	}
	sw.Set(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if !derived.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(Info) = false after switching to a debug handler")
	}
}
