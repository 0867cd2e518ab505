package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultMaxRetryTimes   = 8
	DefaultRetryInterval   = 3 * time.Minute
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultAccountDelay    = time.Second
	DefaultWebhookURL      = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send"
	DefaultWebhookTimeout  = 15 * time.Second
	DefaultWebhookMaxChars = 2000
	DefaultPushTimeout     = 15 * time.Second
	DefaultTampermonkeyURL = "https://bbs.tampermonkey.net.cn"
	DefaultWinMoesURL      = "https://winmoes.com"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Load reads configuration from an optional YAML file, then applies
// environment overrides and defaults. A missing file is not an error: the
// scheduled-task setup usually configures everything through the environment.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			// Expand environment variables in the YAML content
			expandedData := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Retry.Policy().Validate(); err != nil {
		return nil, err
	}
	if cfg.HTTP.Timeout <= 0 {
		return nil, fmt.Errorf("http timeout must be > 0, got %s", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.Delay() < 0 {
		return nil, fmt.Errorf("account delay must be >= 0, got %s", cfg.HTTP.Delay())
	}

	return &cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if v, ok := os.LookupEnv("MAX_RETRY_TIMES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_RETRY_TIMES %q: %w", v, err)
		}
		cfg.Retry.MaxRetryTimes = &n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"RETRY_INTERVAL_MS", &cfg.Retry.Interval},
		{"HTTP_TIMEOUT_MS", &cfg.HTTP.Timeout},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(d.key)
		if !ok || v == "" {
			continue
		}
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = time.Duration(ms) * time.Millisecond
	}

	if v, ok := os.LookupEnv("ACCOUNT_DELAY_MS"); ok && v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ACCOUNT_DELAY_MS %q: %w", v, err)
		}
		d := time.Duration(ms) * time.Millisecond
		cfg.HTTP.AccountDelay = &d
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"TAMPERMONKEY_COOKIE", &cfg.Tampermonkey.Cookies},
		{"WINMOES_ACCOUNT", &cfg.WinMoes.Usernames},
		{"WINMOES_PASSWORD", &cfg.WinMoes.Passwords},
		{"QYWX_KEY", &cfg.Notify.WebhookKey},
		{"QYWX_URL", &cfg.Notify.WebhookURL},
		{"PUSH_URL", &cfg.Notify.PushURL},
		{"REDIS_URL", &cfg.Redis.URL},
		{"REDIS_PASSWORD", &cfg.Redis.Password},
		{"PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL},
		{"LOG_LEVEL", &cfg.Logging.Level},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Retry.MaxRetryTimes == nil {
		n := DefaultMaxRetryTimes
		cfg.Retry.MaxRetryTimes = &n
	}
	if cfg.Retry.Interval == 0 {
		cfg.Retry.Interval = DefaultRetryInterval
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = DefaultHTTPTimeout
	}
	if cfg.HTTP.AccountDelay == nil {
		d := DefaultAccountDelay
		cfg.HTTP.AccountDelay = &d
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = DefaultUserAgent
	}
	if cfg.Tampermonkey.BaseURL == "" {
		cfg.Tampermonkey.BaseURL = DefaultTampermonkeyURL
	}
	if cfg.Tampermonkey.SignURL == "" {
		cfg.Tampermonkey.SignURL = cfg.Tampermonkey.BaseURL + "/plugin.php?id=dsu_paulsign:sign"
	}
	if cfg.WinMoes.BaseURL == "" {
		cfg.WinMoes.BaseURL = DefaultWinMoesURL
	}
	if cfg.Notify.WebhookURL == "" {
		cfg.Notify.WebhookURL = DefaultWebhookURL
	}
	if cfg.Notify.WebhookTimeout == 0 {
		cfg.Notify.WebhookTimeout = DefaultWebhookTimeout
	}
	if cfg.Notify.WebhookMaxLength == 0 {
		cfg.Notify.WebhookMaxLength = DefaultWebhookMaxChars
	}
	if cfg.Notify.PushTimeout == 0 {
		cfg.Notify.PushTimeout = DefaultPushTimeout
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "checkin"
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
