package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/checkin/internal/core/domain"
	"github.com/vietddude/checkin/internal/core/orchestrator"
	"github.com/vietddude/checkin/internal/infra/notify"
	"github.com/vietddude/checkin/internal/metrics"
)

const notifyTimeout = time.Minute

// RunnerConfig holds the settings for one site run.
type RunnerConfig struct {
	Site         domain.Site
	Title        string
	Accounts     []domain.Account
	Policy       domain.RetryPolicy
	AccountDelay time.Duration
	LockTTL      time.Duration
}

// Runner checks in every account of a site one after another, then sends a
// single notification with the results.
type Runner struct {
	cfg        RunnerConfig
	newAction  ActionFactory
	dispatcher *notify.Dispatcher
	locker     Locker
	pace       Pacer
	orchOpts   []orchestrator.Option
	log        *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithPacer(p Pacer) RunnerOption {
	return func(r *Runner) { r.pace = p }
}

func WithLocker(l Locker) RunnerOption {
	return func(r *Runner) { r.locker = l }
}

// WithOrchestratorOptions passes options to the per-account orchestrator.
func WithOrchestratorOptions(opts ...orchestrator.Option) RunnerOption {
	return func(r *Runner) { r.orchOpts = append(r.orchOpts, opts...) }
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a runner for one site.
func NewRunner(cfg RunnerConfig, newAction ActionFactory, dispatcher *notify.Dispatcher, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:        cfg,
		newAction:  newAction,
		dispatcher: dispatcher,
		pace:       SleepPacer,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run checks in all accounts and dispatches the notification. It always
// returns a summary; failures are reported through it.
func (r *Runner) Run(ctx context.Context) Summary {
	summary := Summary{
		RunID: uuid.NewString(),
		Site:  r.cfg.Site,
		Title: r.cfg.Title,
	}
	log := r.log.With("run_id", summary.RunID, "site", r.cfg.Site)

	if r.locker != nil {
		release, acquired := r.lock(ctx, log, summary.RunID)
		if !acquired {
			summary.Skipped = true
			log.Warn("Another run holds the lock, skipping")
			return summary
		}
		defer release()
	}

	log.Info("Check-in started", "accounts", len(r.cfg.Accounts))

	for i, acc := range r.cfg.Accounts {
		if i > 0 {
			if err := r.pace(ctx, r.cfg.AccountDelay); err != nil {
				log.Warn("Run interrupted between accounts", "error", err)
				summary.Results = append(summary.Results, notAttempted(r.cfg.Accounts[i:])...)
				break
			}
		}
		summary.Results = append(summary.Results, AccountResult{
			Account: acc.Name,
			Result:  r.runAccount(ctx, log, acc),
		})
	}

	// Notify even when the run was interrupted.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	report := r.dispatcher.Notify(notifyCtx, r.cfg.Title, summary.Text())
	for _, d := range report.Deliveries {
		metrics.RecordDelivery(d.Channel, string(d.Status))
	}

	log.Info("Check-in finished",
		"succeeded", summary.Succeeded(),
		"notifications_sent", report.Count(notify.DeliverySent),
		"notifications_failed", report.Count(notify.DeliveryFailed),
	)
	return summary
}

func (r *Runner) runAccount(ctx context.Context, log *slog.Logger, acc domain.Account) domain.RunResult {
	site := string(r.cfg.Site)
	accLog := log.With("account", acc.Name)

	opts := append([]orchestrator.Option{
		orchestrator.WithLogger(accLog),
		orchestrator.WithObserver(func(attempt int, o domain.Outcome) {
			result := "success"
			if !o.Success {
				result = string(o.Failure)
			}
			metrics.RecordAttempt(site, result)
			accLog.Debug("Attempt finished", "attempt", attempt, "success", o.Success, "message", o.Message)
		}),
	}, r.orchOpts...)

	result := orchestrator.New(r.cfg.Policy, opts...).Run(ctx, r.newAction(acc))
	metrics.RecordRun(site, string(result.State), result.State == domain.RunStateSuccess,
		result.Duration(), result.FinishedAt)
	return result
}

func (r *Runner) lock(ctx context.Context, log *slog.Logger, token string) (func(), bool) {
	site := string(r.cfg.Site)
	ok, err := r.locker.AcquireLock(ctx, site, token, r.cfg.LockTTL)
	if err != nil {
		log.Warn("Run lock unavailable, continuing without it", "error", err)
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.locker.ReleaseLock(releaseCtx, site, token); err != nil {
			log.Warn("Failed to release run lock", "error", err)
		}
	}, true
}

func notAttempted(accounts []domain.Account) []AccountResult {
	results := make([]AccountResult, 0, len(accounts))
	for _, acc := range accounts {
		results = append(results, AccountResult{
			Account: acc.Name,
			Result: domain.RunResult{
				State:   domain.RunStateTerminalFailure,
				Outcome: domain.InternalFailure("not attempted, run interrupted"),
			},
		})
	}
	return results
}
