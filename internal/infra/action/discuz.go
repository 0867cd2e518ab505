package action

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vietddude/checkin/internal/core/domain"
)

// Response markers of the dsu_paulsign plugin.
const (
	discuzMarkerLogin         = "登录"
	discuzMarkerSigned        = "签到成功"
	discuzMarkerAlreadySigned = "今日已签到"
	discuzMarkerSignedBefore  = "已签过到"
)

var formhashPattern = regexp.MustCompile(`(?i)formhash=(\w+)`)

// DiscuzConfig holds settings for one Discuz account.
type DiscuzConfig struct {
	BaseURL   string
	SignURL   string
	Cookie    string
	UserAgent string
	Timeout   time.Duration
}

// DiscuzSign signs in to a Discuz forum through the dsu_paulsign plugin using
// a browser cookie.
type DiscuzSign struct {
	cfg    DiscuzConfig
	client *http.Client
}

// NewDiscuzSign creates the action. The client keeps no cookies; the session
// comes from the configured cookie on every request.
func NewDiscuzSign(cfg DiscuzConfig) *DiscuzSign {
	return &DiscuzSign{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout, nil),
	}
}

// signPage is what the sign page yields. Formhash is nil when the page did not
// carry one.
type signPage struct {
	Formhash    *string
	LoginPrompt bool
}

func parseSignPage(body []byte) signPage {
	page := signPage{LoginPrompt: bytes.Contains(body, []byte(discuzMarkerLogin))}

	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		if v, ok := doc.Find(`input[name="formhash"]`).First().Attr("value"); ok && v != "" {
			page.Formhash = &v
			return page
		}
	}
	if m := formhashPattern.FindSubmatch(body); m != nil {
		v := string(m[1])
		page.Formhash = &v
	}
	return page
}

func (p signPage) outcome() domain.Outcome {
	if p.LoginPrompt {
		return domain.AuthenticationFailure("no formhash on the sign page, the cookie has expired (refresh TAMPERMONKEY_COOKIE)")
	}
	return domain.UnrecognizedFailure("no formhash on the sign page, the page may have failed to render")
}

// signReply is what the sign submission yields.
type signReply struct {
	AlreadySigned bool
	Signed        bool
	LoginPrompt   bool
}

func parseSignReply(body []byte) signReply {
	text := string(body)
	return signReply{
		AlreadySigned: strings.Contains(text, discuzMarkerAlreadySigned) || strings.Contains(text, discuzMarkerSignedBefore),
		Signed:        strings.Contains(text, discuzMarkerSigned),
		LoginPrompt:   strings.Contains(text, discuzMarkerLogin),
	}
}

func (r signReply) outcome() domain.Outcome {
	switch {
	case r.AlreadySigned:
		return domain.Succeeded("already checked in today, nothing to do")
	case r.Signed:
		return domain.Succeeded("checked in, today's reward collected")
	case r.LoginPrompt:
		return domain.AuthenticationFailure("sign rejected, the cookie has expired (refresh TAMPERMONKEY_COOKIE)")
	default:
		return domain.UnrecognizedFailure("sign returned an unknown result")
	}
}

// Execute performs one sign attempt: fetch the formhash, then submit the form.
func (d *DiscuzSign) Execute(ctx context.Context) domain.Outcome {
	if strings.TrimSpace(d.cfg.Cookie) == "" {
		return domain.ConfigurationFailure("TAMPERMONKEY_COOKIE is not set, check the environment")
	}

	pageReq, err := d.newRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return domain.ConfigurationFailure(fmt.Sprintf("invalid sign URL: %v", err))
	}
	pageReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(pageReq)
	if err != nil {
		return classifyTransport("loading the sign page", err)
	}
	if failure, bad := classifyDiscuzStatus("loading the sign page", resp); bad {
		resp.Body.Close()
		return failure
	}
	body, err := readBody(resp)
	if err != nil {
		return classifyTransport("reading the sign page", err)
	}

	page := parseSignPage(body)
	if page.Formhash == nil {
		return page.outcome()
	}

	form := url.Values{
		"formhash":   {*page.Formhash},
		"signsubmit": {"yes"},
		"handlekey":  {"sign"},
		"emotid":     {"1"},
		"content":    {""},
	}
	signReq, err := d.newRequest(ctx, http.MethodPost, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.ConfigurationFailure(fmt.Sprintf("invalid sign URL: %v", err))
	}
	signReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err = d.client.Do(signReq)
	if err != nil {
		return classifyTransport("submitting the sign form", err)
	}
	if failure, bad := classifyDiscuzStatus("submitting the sign form", resp); bad {
		resp.Body.Close()
		return failure
	}
	body, err = readBody(resp)
	if err != nil {
		return classifyTransport("reading the sign reply", err)
	}

	return parseSignReply(body).outcome()
}

func (d *DiscuzSign) newRequest(ctx context.Context, method string, body *strings.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, d.cfg.SignURL, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, d.cfg.SignURL, body)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("Cookie", d.cfg.Cookie)
	req.Header.Set("Referer", d.cfg.BaseURL)
	return req, nil
}

// classifyDiscuzStatus treats a redirect to the login page as an expired
// cookie and anything else non-2xx like classifyStatus.
func classifyDiscuzStatus(step string, resp *http.Response) (domain.Outcome, bool) {
	if resp.StatusCode >= 300 && resp.StatusCode < 400 && isLoginRedirect(resp.Header.Get("Location")) {
		return domain.AuthenticationFailure(
			step + " redirected to login, the cookie has expired (refresh TAMPERMONKEY_COOKIE)"), true
	}
	return classifyStatus(step, resp)
}

func isLoginRedirect(location string) bool {
	l := strings.ToLower(location)
	return strings.Contains(l, "logging") || strings.Contains(l, "login")
}
