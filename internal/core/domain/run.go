package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPolicy = errors.New("invalid retry policy")

// Action runs one attempt of a remote check-in and classifies the result.
// Implementations keep no state between calls.
type Action interface {
	Execute(ctx context.Context) Outcome
}

// ActionFunc adapts a plain function to Action.
type ActionFunc func(ctx context.Context) Outcome

func (f ActionFunc) Execute(ctx context.Context) Outcome { return f(ctx) }

// RetryPolicy bounds the retry loop. MaxAttempts counts retries, so
// MaxAttempts = 0 means a single attempt.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_retry_times"`
	Interval    time.Duration `yaml:"retry_interval"`
}

// Validate checks the policy bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("%w: max retry times must be >= 0, got %d", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("%w: retry interval must be > 0, got %s", ErrInvalidPolicy, p.Interval)
	}
	return nil
}

// RunState tracks the orchestrator state machine.
type RunState string

const (
	RunStateIdle             RunState = "idle"
	RunStateAttempting       RunState = "attempting"
	RunStateSuccess          RunState = "success"
	RunStateTerminalFailure  RunState = "terminal_failure"
	RunStateExhaustedRetries RunState = "exhausted_retries"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateSuccess, RunStateTerminalFailure, RunStateExhaustedRetries:
		return true
	}
	return false
}

// RunResult is the final outcome of one orchestrated run.
type RunResult struct {
	Outcome      Outcome
	State        RunState
	AttemptsUsed int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns wall time spent in the run, retry waits included.
func (r RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
