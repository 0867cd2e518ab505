package control

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/checkin/internal/core/domain"
	"github.com/vietddude/checkin/internal/core/orchestrator"
	"github.com/vietddude/checkin/internal/infra/notify"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func zeroBackoff(p domain.RetryPolicy) retry.Backoff {
	return retry.WithMaxRetries(uint64(p.MaxAttempts), retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	}))
}

type recordingChannel struct {
	titles   []string
	contents []string
}

func (c *recordingChannel) Name() string          { return "recording" }
func (c *recordingChannel) Enabled() bool         { return true }
func (c *recordingChannel) MaxContentLength() int { return 0 }

func (c *recordingChannel) Send(_ context.Context, title, content string) error {
	c.titles = append(c.titles, title)
	c.contents = append(c.contents, content)
	return nil
}

type fakeLocker struct {
	held       bool
	err        error
	acquired   []string
	released   []string
	releaseTTL time.Duration
}

func (l *fakeLocker) AcquireLock(_ context.Context, site, token string, ttl time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.acquired = append(l.acquired, site+":"+token)
	l.releaseTTL = ttl
	return true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, site, token string) error {
	l.released = append(l.released, site+":"+token)
	return nil
}

// outcomesByAccount returns a factory whose actions replay fixed outcomes.
func outcomesByAccount(calls map[string]int, outcomes map[string]domain.Outcome) ActionFactory {
	return func(acc domain.Account) domain.Action {
		return domain.ActionFunc(func(context.Context) domain.Outcome {
			calls[acc.Name]++
			return outcomes[acc.Name]
		})
	}
}

func newTestRunner(accounts []string, factory ActionFactory, ch notify.Channel, opts ...RunnerOption) *Runner {
	accs := make([]domain.Account, 0, len(accounts))
	for _, name := range accounts {
		accs = append(accs, domain.Account{Name: name})
	}
	cfg := RunnerConfig{
		Site:         domain.SiteWinMoes,
		Title:        "WinMoes check-in report",
		Accounts:     accs,
		Policy:       domain.RetryPolicy{MaxAttempts: 2, Interval: time.Minute},
		AccountDelay: time.Second,
		LockTTL:      time.Hour,
	}
	base := []RunnerOption{
		WithLogger(discard),
		WithPacer(func(context.Context, time.Duration) error { return nil }),
		WithOrchestratorOptions(orchestrator.WithBackoff(zeroBackoff)),
	}
	return NewRunner(cfg, factory, notify.NewDispatcher(discard, ch), append(base, opts...)...)
}

func TestRunner_RunsAccountsSequentiallyAndNotifiesOnce(t *testing.T) {
	calls := map[string]int{}
	factory := outcomesByAccount(calls, map[string]domain.Outcome{
		"alice": domain.Succeeded("checked in"),
		"bob":   domain.AuthenticationFailure("login failed"),
		"carol": domain.NetworkFailure("timed out"),
	})
	var delays []time.Duration
	ch := &recordingChannel{}

	summary := newTestRunner([]string{"alice", "bob", "carol"}, factory, ch,
		WithPacer(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}),
	).Run(context.Background())

	assert.Equal(t, map[string]int{"alice": 1, "bob": 1, "carol": 3}, calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, delays)
	assert.False(t, summary.Succeeded())
	assert.NotEmpty(t, summary.RunID)

	require.Len(t, ch.contents, 1)
	assert.Equal(t, []string{"WinMoes check-in report"}, ch.titles)
	content := ch.contents[0]
	assert.Contains(t, content, "1 of 3 accounts checked in")
	assert.Contains(t, content, "[alice] success: checked in")
	assert.Contains(t, content, "[bob] failed, refresh credentials: login failed")
	assert.Contains(t, content, "[carol] failed after 3 attempts, retries exhausted")
}

func TestRunner_AllSucceeded(t *testing.T) {
	calls := map[string]int{}
	factory := outcomesByAccount(calls, map[string]domain.Outcome{
		"account 1": domain.Succeeded("already checked in today, nothing to do"),
	})

	summary := newTestRunner([]string{"account 1"}, factory, &recordingChannel{}).Run(context.Background())

	assert.True(t, summary.Succeeded())
	require.Len(t, summary.Results, 1)
	assert.Equal(t, domain.RunStateSuccess, summary.Results[0].Result.State)
}

func TestRunner_SkipsWhenLockHeld(t *testing.T) {
	calls := map[string]int{}
	factory := outcomesByAccount(calls, map[string]domain.Outcome{"alice": domain.Succeeded("ok")})
	ch := &recordingChannel{}

	summary := newTestRunner([]string{"alice"}, factory, ch, WithLocker(&fakeLocker{held: true})).
		Run(context.Background())

	assert.True(t, summary.Skipped)
	assert.Empty(t, calls)
	assert.Empty(t, ch.contents)
}

func TestRunner_ReleasesLock(t *testing.T) {
	calls := map[string]int{}
	factory := outcomesByAccount(calls, map[string]domain.Outcome{"alice": domain.Succeeded("ok")})
	locker := &fakeLocker{}

	summary := newTestRunner([]string{"alice"}, factory, &recordingChannel{}, WithLocker(locker)).
		Run(context.Background())

	require.Len(t, locker.acquired, 1)
	assert.Equal(t, locker.acquired, locker.released)
	assert.Equal(t, "winmoes:"+summary.RunID, locker.acquired[0])
	assert.Equal(t, time.Hour, locker.releaseTTL)
}

func TestRunner_LockErrorDoesNotBlockRun(t *testing.T) {
	calls := map[string]int{}
	factory := outcomesByAccount(calls, map[string]domain.Outcome{"alice": domain.Succeeded("ok")})

	summary := newTestRunner([]string{"alice"}, factory, &recordingChannel{},
		WithLocker(&fakeLocker{err: errors.New("redis down")})).Run(context.Background())

	assert.False(t, summary.Skipped)
	assert.Equal(t, 1, calls["alice"])
}

func TestRunner_InterruptedBetweenAccountsStillNotifies(t *testing.T) {
	calls := map[string]int{}
	factory := outcomesByAccount(calls, map[string]domain.Outcome{
		"alice": domain.Succeeded("ok"),
		"bob":   domain.Succeeded("ok"),
	})
	ch := &recordingChannel{}

	summary := newTestRunner([]string{"alice", "bob"}, factory, ch,
		WithPacer(func(context.Context, time.Duration) error { return context.Canceled }),
	).Run(context.Background())

	assert.Equal(t, 0, calls["bob"])
	require.Len(t, summary.Results, 2)
	assert.Equal(t, domain.RunStateTerminalFailure, summary.Results[1].Result.State)
	require.Len(t, ch.contents, 1)
	assert.Contains(t, ch.contents[0], "[bob] failed: not attempted")
}

func TestSleepPacer(t *testing.T) {
	assert.NoError(t, SleepPacer(context.Background(), 0))
	assert.NoError(t, SleepPacer(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepPacer(ctx, time.Hour), context.Canceled)
}

func TestSummaryText_ConfigurationFailure(t *testing.T) {
	s := Summary{Results: []AccountResult{{
		Account: "account 1",
		Result: domain.RunResult{
			State:        domain.RunStateTerminalFailure,
			AttemptsUsed: 1,
			Outcome:      domain.ConfigurationFailure("TAMPERMONKEY_COOKIE is not set"),
		},
	}}}

	text := s.Text()
	assert.True(t, strings.HasPrefix(text, "0 of 1 accounts checked in\n"))
	assert.Contains(t, text, "failed, check configuration: TAMPERMONKEY_COOKIE is not set")
}
