package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/checkin/internal/core/domain"
)

const (
	b2AjaxPath        = "/wp-admin/admin-ajax.php"
	b2TokenCookie     = "b2_token"
	b2MarkerAlreadyIn = "已经"
)

// B2Config holds settings for one B2 theme account.
type B2Config struct {
	BaseURL   string
	Username  string
	Password  string
	UserAgent string
	Timeout   time.Duration
}

// B2Sign logs in to a WordPress site running the B2 theme and calls its
// user_sign ajax action.
type B2Sign struct {
	cfg B2Config
}

func NewB2Sign(cfg B2Config) *B2Sign {
	return &B2Sign{cfg: cfg}
}

// b2SignReply is the JSON object form of the user_sign reply. Both fields are
// optional.
type b2SignReply struct {
	Data    *json.RawMessage `json:"data"`
	Message *string          `json:"msg"`
}

// classifyB2Reply maps the user_sign body to an outcome.
func classifyB2Reply(body []byte) domain.Outcome {
	text := strings.TrimSpace(string(body))
	if strings.Contains(text, b2MarkerAlreadyIn) {
		return domain.Succeeded("already checked in today, nothing to do")
	}

	var reply b2SignReply
	if err := json.Unmarshal(body, &reply); err == nil && text != "null" {
		switch {
		case reply.Data != nil:
			return domain.Succeeded(fmt.Sprintf("checked in: %s", snippet(string(*reply.Data), 50)))
		case reply.Message != nil:
			return domain.Succeeded(fmt.Sprintf("checked in: %s", snippet(*reply.Message, 50)))
		default:
			return domain.Succeeded("checked in")
		}
	}

	// A bare positive number is the credit reward; admin-ajax answers 0 or -1
	// when it did not run the action.
	var credit json.Number
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&credit); err == nil {
		if n, err := credit.Float64(); err == nil && n > 0 {
			return domain.Succeeded(fmt.Sprintf("checked in, reward %s", credit))
		}
	}

	return domain.UnrecognizedFailure(fmt.Sprintf("sign returned an unknown result: %s", snippet(text, 30)))
}

// Execute logs in with a fresh cookie jar and submits the sign action.
func (b *B2Sign) Execute(ctx context.Context) domain.Outcome {
	if b.cfg.Username == "" || b.cfg.Password == "" {
		return domain.ConfigurationFailure(fmt.Sprintf(
			"account %q is missing its username or password, check WINMOES_ACCOUNT and WINMOES_PASSWORD", b.cfg.Username))
	}

	base, err := url.Parse(b.cfg.BaseURL)
	if err != nil || base.Host == "" {
		return domain.ConfigurationFailure(fmt.Sprintf("invalid base URL %q", b.cfg.BaseURL))
	}
	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + b2AjaxPath

	jar, err := cookiejar.New(nil)
	if err != nil {
		return domain.InternalFailure(fmt.Sprintf("create cookie jar: %v", err))
	}
	client := newHTTPClient(b.cfg.Timeout, jar)

	resp, err := b.post(ctx, client, endpoint, url.Values{
		"action":   {"b2_login"},
		"username": {b.cfg.Username},
		"password": {b.cfg.Password},
	})
	if err != nil {
		return classifyTransport("login", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return domain.NetworkFailure(fmt.Sprintf("login failed with HTTP %d", resp.StatusCode))
	}
	if !hasCookie(resp.Cookies(), b2TokenCookie) && !hasCookie(jar.Cookies(base), b2TokenCookie) {
		return domain.AuthenticationFailure(
			"login failed: check the account and password, or whether the site turned on captcha or a firewall")
	}

	resp, err = b.post(ctx, client, endpoint, url.Values{"action": {"user_sign"}})
	if err != nil {
		return classifyTransport("sign", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return domain.NetworkFailure(fmt.Sprintf("sign request failed with HTTP %d", resp.StatusCode))
	}
	body, err := readBody(resp)
	if err != nil {
		return classifyTransport("reading the sign reply", err)
	}

	return classifyB2Reply(body)
}

func (b *B2Sign) post(ctx context.Context, client *http.Client, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("User-Agent", b.cfg.UserAgent)
	req.Header.Set("Referer", b.cfg.BaseURL)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return client.Do(req)
}

func hasCookie(cookies []*http.Cookie, name string) bool {
	for _, c := range cookies {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}
