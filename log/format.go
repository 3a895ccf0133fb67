package log

import "fmt"

// MessageFormatter provides consistent log message formatting for startup
// and shutdown messages of long running components.
type MessageFormatter struct {
	component      string
	componentEmoji string
}

// NewMessageFormatter creates a new formatter instance
func NewMessageFormatter() *MessageFormatter {
	return &MessageFormatter{}
}

// WithComponent sets the component name and emoji
func (f *MessageFormatter) WithComponent(name, emoji string) *MessageFormatter {
	f.component = name
	f.componentEmoji = emoji
	return f
}

func (f *MessageFormatter) format(mark, msg string) string {
	return fmt.Sprintf("%s  %s: %s  %s", f.componentEmoji, f.component, mark, msg)
}

// Fail formats an error message
func (f *MessageFormatter) Fail(msg string) string { return f.format("❌", msg) }

// Ok formats a success message
func (f *MessageFormatter) Ok(msg string) string { return f.format("✅", msg) }

// Warn formats a warning message
func (f *MessageFormatter) Warn(msg string) string { return f.format("⚠️", msg) }

// Start formats the beginning of an operation
func (f *MessageFormatter) Start(msg string) string { return f.format("▶️", msg) }

// Complete formats the end of an operation
func (f *MessageFormatter) Complete(msg string) string { return f.format("🏁", msg) }

// Active formats a component that is up
func (f *MessageFormatter) Active(msg string) string { return f.format("🟢", msg) }

// Inactive formats a component that is down
func (f *MessageFormatter) Inactive(msg string) string { return f.format("⚪", msg) }
