package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// NotifyFunc is a pluggable notifier, e.g. a push service client.
type NotifyFunc func(ctx context.Context, title, content string) error

// ExternalChannel delegates delivery to an injected NotifyFunc.
type ExternalChannel struct {
	name string
	fn   NotifyFunc
}

// NewExternalChannel wraps fn. Without a function it returns a NoOpChannel, so
// an absent notifier never counts as a failed delivery.
func NewExternalChannel(name string, fn NotifyFunc, log *slog.Logger) Channel {
	if fn == nil {
		return NewNoOpChannel(name, log)
	}
	return &ExternalChannel{name: name, fn: fn}
}

func (e *ExternalChannel) Name() string          { return e.name }
func (e *ExternalChannel) Enabled() bool         { return true }
func (e *ExternalChannel) MaxContentLength() int { return 0 }

func (e *ExternalChannel) Send(ctx context.Context, title, content string) error {
	return e.fn(ctx, title, content)
}

// NoOpChannel stands in for a missing external notifier. It logs the message
// and reports success.
type NoOpChannel struct {
	name string
	log  *slog.Logger
}

func NewNoOpChannel(name string, log *slog.Logger) *NoOpChannel {
	if log == nil {
		log = slog.Default()
	}
	return &NoOpChannel{name: name, log: log}
}

func (n *NoOpChannel) Name() string          { return n.name }
func (n *NoOpChannel) Enabled() bool         { return true }
func (n *NoOpChannel) MaxContentLength() int { return 0 }

func (n *NoOpChannel) Send(_ context.Context, title, content string) error {
	n.log.Info("No external notifier configured, notification logged only",
		"channel", n.name, "title", title, "content", content)
	return nil
}

type pushPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// HTTPPush returns a NotifyFunc that posts {"title","content"} JSON to url.
// Any 2xx status counts as delivered.
func HTTPPush(url string, timeout time.Duration) NotifyFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, title, content string) error {
		const name = "push"

		body, err := json.Marshal(pushPayload{Title: title, Content: content})
		if err != nil {
			return &ChannelError{Channel: name, Message: "marshal payload", Err: err}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return &ChannelError{Channel: name, Message: "create request", Err: err}
		}
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		resp, err := client.Do(req)
		if err != nil {
			return &ChannelError{Channel: name, Err: err}
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &ChannelError{
				Channel:    name,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("push service answered %s", http.StatusText(resp.StatusCode)),
			}
		}
		return nil
	}
}
