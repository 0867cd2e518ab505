package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// WebhookConfig configures a WeCom group bot.
type WebhookConfig struct {
	Endpoint  string
	Key       string
	Timeout   time.Duration
	MaxLength int
}

// WebhookChannel posts text messages to a WeCom (qyapi) group bot webhook.
type WebhookChannel struct {
	cfg    WebhookConfig
	client *http.Client
}

func NewWebhookChannel(cfg WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// webhookReply is the bot API reply. ErrCode is required for success; a reply
// without it is treated as a failure.
type webhookReply struct {
	ErrCode *int   `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (w *WebhookChannel) Name() string          { return "qywx-bot" }
func (w *WebhookChannel) Enabled() bool         { return w.cfg.Key != "" }
func (w *WebhookChannel) MaxContentLength() int { return w.cfg.MaxLength }

func (w *WebhookChannel) Compose(title, content string) string {
	return fmt.Sprintf("【%s】\n%s", title, content)
}

// Send posts content as-is; the dispatcher has already composed and truncated it.
func (w *WebhookChannel) Send(ctx context.Context, _, content string) error {
	endpoint, err := w.endpoint()
	if err != nil {
		return &ChannelError{Channel: w.Name(), Message: "invalid webhook endpoint", Err: err}
	}

	body, err := json.Marshal(webhookPayload{MsgType: "text", Text: webhookText{Content: content}})
	if err != nil {
		return &ChannelError{Channel: w.Name(), Message: "marshal payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &ChannelError{Channel: w.Name(), Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := w.client.Do(req)
	if err != nil {
		return &ChannelError{Channel: w.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			msg += " (the key may be wrong or the bot was removed)"
		}
		return &ChannelError{Channel: w.Name(), StatusCode: resp.StatusCode, Message: msg}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &ChannelError{Channel: w.Name(), StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	var reply webhookReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return &ChannelError{Channel: w.Name(), StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
	}
	if reply.ErrCode == nil {
		return &ChannelError{Channel: w.Name(), StatusCode: resp.StatusCode, Message: "unexpected reply", Err: ErrMissingErrcode}
	}
	if *reply.ErrCode != 0 {
		msg := reply.ErrMsg
		if msg == "" {
			msg = "unknown error"
		}
		return &ChannelError{Channel: w.Name(), Code: reply.ErrCode, Message: msg}
	}
	return nil
}

func (w *WebhookChannel) endpoint() (string, error) {
	u, err := url.Parse(w.cfg.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", w.cfg.Key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
