package notify

import (
	"context"
	"log/slog"
)

// LogChannel writes the notification to the structured log. It is always
// enabled and is the last line of reporting when every remote channel fails.
type LogChannel struct {
	log *slog.Logger
}

func NewLogChannel(log *slog.Logger) *LogChannel {
	if log == nil {
		log = slog.Default()
	}
	return &LogChannel{log: log}
}

func (l *LogChannel) Name() string          { return "log" }
func (l *LogChannel) Enabled() bool         { return true }
func (l *LogChannel) MaxContentLength() int { return 0 }

func (l *LogChannel) Send(_ context.Context, title, content string) error {
	l.log.Info("Notification", "title", title, "content", content)
	return nil
}
