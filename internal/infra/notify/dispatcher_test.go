package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeChannel struct {
	name     string
	disabled bool
	maxLen   int
	err      error
	panics   bool

	sent []string
}

func (f *fakeChannel) Name() string          { return f.name }
func (f *fakeChannel) Enabled() bool         { return !f.disabled }
func (f *fakeChannel) MaxContentLength() int { return f.maxLen }

func (f *fakeChannel) Send(_ context.Context, _, content string) error {
	if f.panics {
		panic("channel exploded")
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, content)
	return nil
}

func TestDispatcher_IsolatesFailures(t *testing.T) {
	// Every non-empty strict subset of three channels fails; the rest must
	// still receive the notification.
	for mask := 1; mask < 7; mask++ {
		channels := make([]*fakeChannel, 3)
		asChannels := make([]Channel, 3)
		for i := range channels {
			channels[i] = &fakeChannel{name: fmt.Sprintf("ch%d", i)}
			if mask&(1<<i) != 0 {
				channels[i].err = errors.New("down")
			}
			asChannels[i] = channels[i]
		}

		report := NewDispatcher(discard, asChannels...).Notify(context.Background(), "title", "body")

		require.Len(t, report.Deliveries, 3)
		for i, ch := range channels {
			if mask&(1<<i) != 0 {
				assert.Equal(t, DeliveryFailed, report.Deliveries[i].Status)
				assert.Empty(t, ch.sent)
			} else {
				assert.Equal(t, DeliverySent, report.Deliveries[i].Status)
				assert.Equal(t, []string{"body"}, ch.sent)
			}
		}
	}
}

func TestDispatcher_SkipsDisabledChannels(t *testing.T) {
	disabled := &fakeChannel{name: "off", disabled: true}
	enabled := &fakeChannel{name: "on"}

	report := NewDispatcher(discard, disabled, enabled).Notify(context.Background(), "t", "c")

	assert.Empty(t, disabled.sent)
	assert.Equal(t, []string{"c"}, enabled.sent)
	assert.Equal(t, 1, report.Count(DeliverySkipped))
	assert.Equal(t, 1, report.Count(DeliverySent))
}

func TestDispatcher_RecoversChannelPanic(t *testing.T) {
	bad := &fakeChannel{name: "bad", panics: true}
	good := &fakeChannel{name: "good"}

	var report Report
	assert.NotPanics(t, func() {
		report = NewDispatcher(discard, bad, good).Notify(context.Background(), "t", "c")
	})

	assert.Equal(t, DeliveryFailed, report.Deliveries[0].Status)
	assert.Equal(t, []string{"c"}, good.sent)
}

func TestDispatcher_TruncatesPerChannel(t *testing.T) {
	short := &fakeChannel{name: "short", maxLen: 20}
	long := &fakeChannel{name: "long"}
	content := strings.Repeat("签到", 50)

	NewDispatcher(discard, short, long).Notify(context.Background(), "t", content)

	require.Len(t, short.sent, 1)
	assert.True(t, strings.HasSuffix(short.sent[0], TruncationMarker))
	assert.LessOrEqual(t, utf8.RuneCountInString(short.sent[0]), 20+utf8.RuneCountInString(TruncationMarker))
	assert.Equal(t, content, long.sent[0])
}

func TestDispatcher_ScenarioD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errcode":93000,"errmsg":"invalid key"}`))
	}))
	defer server.Close()

	other := &fakeChannel{name: "other"}
	webhook := NewWebhookChannel(WebhookConfig{Endpoint: server.URL, Key: "k", Timeout: time.Second, MaxLength: 2000})

	report := NewDispatcher(discard, webhook, other).Notify(context.Background(), "t", "checked in")

	require.Len(t, report.Deliveries, 2)
	assert.Equal(t, DeliveryFailed, report.Deliveries[0].Status)
	assert.Contains(t, report.Deliveries[0].Err.Error(), "93000")
	assert.Contains(t, report.Deliveries[0].Err.Error(), "invalid key")
	assert.Equal(t, []string{"checked in"}, other.sent)
}

func TestDispatcher_ComposerWrapsTitle(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer server.Close()

	webhook := NewWebhookChannel(WebhookConfig{Endpoint: server.URL, Key: "k", Timeout: time.Second, MaxLength: 2000})
	report := NewDispatcher(discard, webhook).Notify(context.Background(), "Result", "line1<br/>line2")

	assert.Equal(t, DeliverySent, report.Deliveries[0].Status)
	assert.Contains(t, got, `【Result】\nline1\nline2`)
}

func TestFailureAttrs(t *testing.T) {
	code := 93000
	attrs := failureAttrs(&ChannelError{Channel: "x", Code: &code, Message: "invalid key"})
	assert.Contains(t, attrs, "errcode")

	attrs = failureAttrs(&ChannelError{Channel: "x", StatusCode: 502, Message: "Bad Gateway"})
	assert.Contains(t, attrs, "status_code")

	attrs = failureAttrs(&ChannelError{Channel: "x", Err: errors.New("dial tcp: refused")})
	assert.Contains(t, attrs, "unreachable")
}
