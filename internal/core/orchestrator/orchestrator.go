// Package orchestrator drives an Action under a bounded, fixed-interval retry policy.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/checkin/internal/core/domain"
)

var errNotDone = errors.New("attempt did not succeed")

// BackoffFunc builds the wait schedule for one run. It must allow at most
// policy.MaxAttempts retries.
type BackoffFunc func(policy domain.RetryPolicy) retry.Backoff

// ConstantBackoff waits policy.Interval between attempts and stops after
// policy.MaxAttempts retries.
func ConstantBackoff(policy domain.RetryPolicy) retry.Backoff {
	return retry.WithMaxRetries(uint64(policy.MaxAttempts), retry.NewConstant(policy.Interval))
}

// AttemptObserver is called after every attempt with its 1-based number.
type AttemptObserver func(attempt int, outcome domain.Outcome)

// Orchestrator runs an action until it succeeds, fails terminally, or
// exhausts its retry budget.
type Orchestrator struct {
	policy   domain.RetryPolicy
	backoff  BackoffFunc
	observer AttemptObserver
	log      *slog.Logger
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBackoff replaces the wait schedule, e.g. with a zero-delay one in tests.
func WithBackoff(b BackoffFunc) Option {
	return func(o *Orchestrator) { o.backoff = b }
}

// WithObserver registers a per-attempt callback.
func WithObserver(fn AttemptObserver) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithLogger sets the logger used for attempt progress.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an orchestrator for the given policy.
func New(policy domain.RetryPolicy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		policy:  policy,
		backoff: ConstantBackoff,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Policy returns the retry policy in use.
func (o *Orchestrator) Policy() domain.RetryPolicy {
	return o.policy
}

// Run executes the action under the retry policy. It never returns an error:
// every path ends in a RunResult with a terminal state.
func (o *Orchestrator) Run(ctx context.Context, action domain.Action) domain.RunResult {
	result := domain.RunResult{State: domain.RunStateIdle, StartedAt: o.now()}
	var last domain.Outcome

	if err := ctx.Err(); err != nil {
		return o.finish(result, domain.RunStateTerminalFailure,
			domain.InternalFailure("run interrupted before the first attempt"))
	}

	result.State = domain.RunStateAttempting
	err := retry.Do(ctx, o.backoff(o.policy), func(ctx context.Context) error {
		result.AttemptsUsed++
		last = o.attempt(ctx, action)
		if o.observer != nil {
			o.observer(result.AttemptsUsed, last)
		}

		if last.Success {
			return nil
		}
		if !last.Retryable {
			return errNotDone
		}

		retriesUsed := result.AttemptsUsed - 1
		if retriesUsed < o.policy.MaxAttempts {
			o.log.Warn("Attempt failed, will retry",
				"attempt", result.AttemptsUsed,
				"retry_in", o.policy.Interval,
				"retries_left", o.policy.MaxAttempts-retriesUsed-1,
				"message", last.Message,
			)
		}
		return retry.RetryableError(errNotDone)
	})

	switch {
	case err == nil || last.Success:
		return o.finish(result, domain.RunStateSuccess, last)
	case result.AttemptsUsed > 0 && !last.Retryable:
		return o.finish(result, domain.RunStateTerminalFailure, last)
	case result.AttemptsUsed == 0:
		return o.finish(result, domain.RunStateTerminalFailure,
			domain.InternalFailure("run interrupted before the first attempt"))
	case result.AttemptsUsed <= o.policy.MaxAttempts && ctx.Err() != nil:
		last.Message = fmt.Sprintf("%s (interrupted after %d attempts)", last.Message, result.AttemptsUsed)
		return o.finish(result, domain.RunStateTerminalFailure, last)
	}

	// budget spent, or the backoff stopped early
	last.Message = fmt.Sprintf("%s (retried %d times, giving up)", last.Message, result.AttemptsUsed-1)
	return o.finish(result, domain.RunStateExhaustedRetries, last)
}

func (o *Orchestrator) finish(result domain.RunResult, state domain.RunState, outcome domain.Outcome) domain.RunResult {
	result.State = state
	result.Outcome = outcome
	result.FinishedAt = o.now()

	o.log.Info("Run finished",
		"state", result.State,
		"attempts", result.AttemptsUsed,
		"duration", result.Duration().Round(time.Millisecond),
		"message", result.Outcome.Message,
	)
	return result
}

// attempt runs one action call and turns a panic into a retryable failure.
func (o *Orchestrator) attempt(ctx context.Context, action domain.Action) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Action panicked", "panic", r)
			out = domain.InternalFailure(fmt.Sprintf("unexpected error during check-in: %v", r))
		}
	}()

	out = action.Execute(ctx)
	if out.Success {
		out.Retryable = false
	}
	return out
}
