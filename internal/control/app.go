package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vietddude/checkin/internal/core/config"
	"github.com/vietddude/checkin/internal/core/domain"
	"github.com/vietddude/checkin/internal/infra/action"
	"github.com/vietddude/checkin/internal/infra/notify"
	redisclient "github.com/vietddude/checkin/internal/infra/redis"
	"github.com/vietddude/checkin/internal/metrics"
)

// Sites lists every supported site in run order.
var Sites = []domain.Site{domain.SiteTampermonkey, domain.SiteWinMoes}

// App wires the loaded configuration into site runners.
type App struct {
	cfg         config.AppConfig
	dispatcher  *notify.Dispatcher
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewApp builds the notification channels and the optional run lock.
func NewApp(cfg config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	if _, err := url.Parse(cfg.Notify.WebhookURL); err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}

	var push notify.NotifyFunc
	if cfg.Notify.PushURL != "" {
		push = notify.HTTPPush(cfg.Notify.PushURL, cfg.Notify.PushTimeout)
	}
	channels := []notify.Channel{
		notify.NewExternalChannel("push", push, log),
		notify.NewWebhookChannel(notify.WebhookConfig{
			Endpoint:  cfg.Notify.WebhookURL,
			Key:       cfg.Notify.WebhookKey,
			Timeout:   cfg.Notify.WebhookTimeout,
			MaxLength: cfg.Notify.WebhookMaxLength,
		}),
	}
	if !cfg.Notify.DisableLogFallback {
		channels = append(channels, notify.NewLogChannel(log))
	}

	app := &App{
		cfg:        cfg,
		dispatcher: notify.NewDispatcher(log, channels...),
		log:        log,
	}

	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, running without a run lock", "error", err)
		} else {
			app.redisClient = client
		}
	}

	return app, nil
}

// Runner builds the runner for one site.
func (a *App) Runner(site domain.Site, opts ...RunnerOption) (*Runner, error) {
	var accounts []domain.Account
	var factory ActionFactory

	switch site {
	case domain.SiteTampermonkey:
		accounts = a.cfg.Tampermonkey.Accounts()
		factory = func(acc domain.Account) domain.Action {
			return action.NewDiscuzSign(action.DiscuzConfig{
				BaseURL:   a.cfg.Tampermonkey.BaseURL,
				SignURL:   a.cfg.Tampermonkey.SignURL,
				Cookie:    acc.Cookie,
				UserAgent: a.cfg.HTTP.UserAgent,
				Timeout:   a.cfg.HTTP.Timeout,
			})
		}
	case domain.SiteWinMoes:
		accounts = a.cfg.WinMoes.Accounts()
		factory = func(acc domain.Account) domain.Action {
			return action.NewB2Sign(action.B2Config{
				BaseURL:   a.cfg.WinMoes.BaseURL,
				Username:  acc.Username,
				Password:  acc.Password,
				UserAgent: a.cfg.HTTP.UserAgent,
				Timeout:   a.cfg.HTTP.Timeout,
			})
		}
	default:
		return nil, fmt.Errorf("unknown site %q", site)
	}

	policy := a.cfg.Retry.Policy()
	rc := RunnerConfig{
		Site:         site,
		Title:        domain.SiteTitles[site],
		Accounts:     accounts,
		Policy:       policy,
		AccountDelay: a.cfg.HTTP.Delay(),
		LockTTL:      a.lockTTL(policy, len(accounts)),
	}

	base := []RunnerOption{WithLogger(a.log)}
	if a.redisClient != nil {
		base = append(base, WithLocker(a.redisClient))
	}
	return NewRunner(rc, factory, a.dispatcher, append(base, opts...)...), nil
}

// Run runs one site and pushes metrics when a Pushgateway is configured.
func (a *App) Run(ctx context.Context, site domain.Site, opts ...RunnerOption) (Summary, error) {
	runner, err := a.Runner(site, opts...)
	if err != nil {
		return Summary{}, err
	}
	summary := runner.Run(ctx)

	if a.cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
			a.log.Warn("Failed to push metrics", "error", err)
		}
	}
	return summary, nil
}

// Close releases the Redis connection if one was opened.
func (a *App) Close() error {
	if a.redisClient != nil {
		return a.redisClient.Close()
	}
	return nil
}

// lockTTL covers the worst case of a run: every attempt timing out twice,
// every retry wait and every account delay.
func (a *App) lockTTL(p domain.RetryPolicy, accounts int) time.Duration {
	if a.cfg.Redis.LockTTL > 0 {
		return a.cfg.Redis.LockTTL
	}
	perAccount := time.Duration(p.MaxAttempts+1)*2*a.cfg.HTTP.Timeout +
		time.Duration(p.MaxAttempts)*p.Interval +
		a.cfg.HTTP.Delay()
	return time.Duration(accounts)*perAccount + time.Minute
}
