package cli

import (
	"bytes"
	"testing"
	"text/tabwriter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/checkin/internal/core/config"
	"github.com/vietddude/checkin/internal/core/domain"
)

func TestPrintStatus(t *testing.T) {
	retries := 3
	cfg := &config.AppConfig{
		Retry:        config.RetryConfig{MaxRetryTimes: &retries},
		Tampermonkey: config.TampermonkeyConfig{Cookies: "a=1&b=2"},
		WinMoes:      config.WinMoesConfig{Usernames: "u1&u2", Passwords: "p1"},
		Notify:       config.NotifyConfig{WebhookKey: "secret-key"},
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 1, ' ', 0)
	printStatus(w, cfg)
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Regexp(t, `max retries\s+3\n`, out)
	assert.Regexp(t, `tampermonkey accounts\s+2\n`, out)
	assert.Regexp(t, `winmoes accounts\s+1\n`, out)
	assert.NotContains(t, out, "secret-key")
	assert.Regexp(t, `qywx-bot\s+enabled\n`, out)
	assert.Regexp(t, `push\s+disabled\n`, out)
}

func TestAccountCount(t *testing.T) {
	cfg := &config.AppConfig{}
	assert.Equal(t, 0, accountCount(cfg, domain.SiteTampermonkey))
	assert.Equal(t, 0, accountCount(cfg, domain.SiteWinMoes))
}

func TestLogLevel(t *testing.T) {
	isDebug = false
	assert.Equal(t, "INFO", logLevel("").String())
	assert.Equal(t, "WARN", logLevel("warning").String())
	assert.Equal(t, "ERROR", logLevel("ERROR").String())

	isDebug = true
	defer func() { isDebug = false }()
	assert.Equal(t, "DEBUG", logLevel("error").String())
}
