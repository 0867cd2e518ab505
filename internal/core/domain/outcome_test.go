package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeConstructors(t *testing.T) {
	tests := []struct {
		name      string
		outcome   Outcome
		success   bool
		retryable bool
		operator  bool
	}{
		{"success", Succeeded("done"), true, false, false},
		{"configuration", ConfigurationFailure("missing cookie"), false, false, true},
		{"authentication", AuthenticationFailure("invalid credentials"), false, false, true},
		{"network", NetworkFailure("timeout"), false, true, false},
		{"unrecognized", UnrecognizedFailure("unknown page"), false, true, false},
		{"internal", InternalFailure("panic"), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.success, tt.outcome.Success)
			assert.Equal(t, tt.retryable, tt.outcome.Retryable)
			assert.Equal(t, tt.operator, tt.outcome.NeedsOperator())
			if tt.outcome.Success {
				assert.False(t, tt.outcome.Retryable, "success must never be retryable")
			}
		})
	}
}

func TestRetryPolicyValidate(t *testing.T) {
	assert.NoError(t, RetryPolicy{MaxAttempts: 0, Interval: time.Millisecond}.Validate())
	assert.NoError(t, RetryPolicy{MaxAttempts: 8, Interval: 3 * time.Minute}.Validate())

	err := RetryPolicy{MaxAttempts: -1, Interval: time.Second}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidPolicy))

	err = RetryPolicy{MaxAttempts: 1}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidPolicy))
}

func TestRunStateTerminal(t *testing.T) {
	assert.False(t, RunStateIdle.Terminal())
	assert.False(t, RunStateAttempting.Terminal())
	assert.True(t, RunStateSuccess.Terminal())
	assert.True(t, RunStateTerminalFailure.Terminal())
	assert.True(t, RunStateExhaustedRetries.Terminal())
}
