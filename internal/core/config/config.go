package config

import (
	"strings"
	"time"

	"github.com/vietddude/checkin/internal/core/domain"
	redisclient "github.com/vietddude/checkin/internal/infra/redis"
)

// AppConfig represents the top-level configuration. It is built once by Load
// and handed to constructors by value; nothing reads it globally.
type AppConfig struct {
	Retry        RetryConfig        `yaml:"retry"`
	HTTP         HTTPConfig         `yaml:"http"`
	Tampermonkey TampermonkeyConfig `yaml:"tampermonkey"`
	WinMoes      WinMoesConfig      `yaml:"winmoes"`
	Notify       NotifyConfig       `yaml:"notify"`
	Redis        redisclient.Config `yaml:"redis"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// RetryConfig holds the retry budget. MaxRetryTimes is a pointer so that an
// explicit 0 (no retries) is distinguishable from "not set".
type RetryConfig struct {
	MaxRetryTimes *int          `yaml:"max_retry_times"`
	Interval      time.Duration `yaml:"interval"`
}

// Policy converts the loaded settings into a retry policy.
func (r RetryConfig) Policy() domain.RetryPolicy {
	p := domain.RetryPolicy{Interval: r.Interval}
	if r.MaxRetryTimes != nil {
		p.MaxAttempts = *r.MaxRetryTimes
	}
	return p
}

// HTTPConfig holds outbound request settings shared by all actions.
// AccountDelay is a pointer so that an explicit 0 turns the pause off.
type HTTPConfig struct {
	Timeout      time.Duration  `yaml:"timeout"`
	AccountDelay *time.Duration `yaml:"account_delay"`
	UserAgent    string         `yaml:"user_agent"`
}

// Delay returns the pause between accounts.
func (h HTTPConfig) Delay() time.Duration {
	if h.AccountDelay == nil {
		return 0
	}
	return *h.AccountDelay
}

// TampermonkeyConfig holds settings for the Discuz sign plugin.
type TampermonkeyConfig struct {
	BaseURL string `yaml:"base_url"`
	SignURL string `yaml:"sign_url"`
	Cookies string `yaml:"cookies"` // "&" or newline separated
}

// Accounts splits the configured cookies into one account per cookie.
// An empty setting still yields one account so the missing cookie is reported.
func (c TampermonkeyConfig) Accounts() []domain.Account {
	cookies := splitList(c.Cookies, "&\n")
	if len(cookies) == 0 {
		return []domain.Account{{Name: "account 1"}}
	}
	accounts := make([]domain.Account, 0, len(cookies))
	for i, cookie := range cookies {
		accounts = append(accounts, domain.Account{
			Name:   "account " + itoa(i+1),
			Cookie: cookie,
		})
	}
	return accounts
}

// WinMoesConfig holds settings for the B2 theme sign endpoint.
type WinMoesConfig struct {
	BaseURL   string `yaml:"base_url"`
	Usernames string `yaml:"usernames"` // "&" separated
	Passwords string `yaml:"passwords"` // "&" separated, paired by position
}

// Accounts pairs usernames and passwords by position. Unpaired entries are kept
// with the missing half empty so the action reports them as misconfigured.
func (c WinMoesConfig) Accounts() []domain.Account {
	users := splitList(c.Usernames, "&")
	passwords := splitList(c.Passwords, "&")
	n := max(len(users), len(passwords))
	if n == 0 {
		return []domain.Account{{Name: "account 1"}}
	}
	accounts := make([]domain.Account, 0, n)
	for i := 0; i < n; i++ {
		var acc domain.Account
		if i < len(users) {
			acc.Username = users[i]
		}
		if i < len(passwords) {
			acc.Password = passwords[i]
		}
		acc.Name = acc.Username
		if acc.Name == "" {
			acc.Name = "account " + itoa(i+1)
		}
		accounts = append(accounts, acc)
	}
	return accounts
}

// NotifyConfig holds notification channel credentials. A channel is enabled
// only when its credential is present.
type NotifyConfig struct {
	WebhookKey         string        `yaml:"qywx_key"`
	WebhookURL         string        `yaml:"qywx_url"`
	WebhookTimeout     time.Duration `yaml:"qywx_timeout"`
	WebhookMaxLength   int           `yaml:"qywx_max_length"`
	PushURL            string        `yaml:"push_url"`
	PushTimeout        time.Duration `yaml:"push_timeout"`
	DisableLogFallback bool          `yaml:"disable_log_fallback"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

func splitList(s, seps string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
