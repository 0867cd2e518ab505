package control

import (
	"context"
	"time"

	"github.com/vietddude/checkin/internal/core/domain"
)

// ActionFactory builds the check-in action for one account.
type ActionFactory func(acc domain.Account) domain.Action

// Pacer waits between accounts. It returns early with ctx's error on cancel.
type Pacer func(ctx context.Context, d time.Duration) error

// SleepPacer waits d or until ctx is done.
func SleepPacer(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Locker keeps two processes from running the same site at once.
type Locker interface {
	AcquireLock(ctx context.Context, site, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, site, token string) error
}

// AccountResult is the run result for one account.
type AccountResult struct {
	Account string
	Result  domain.RunResult
}

// Summary collects the results of one site run.
type Summary struct {
	RunID   string
	Site    domain.Site
	Title   string
	Results []AccountResult
	Skipped bool // another process held the run lock
}

// Succeeded is true when every account checked in.
func (s Summary) Succeeded() bool {
	if s.Skipped {
		return true
	}
	for _, r := range s.Results {
		if r.Result.State != domain.RunStateSuccess {
			return false
		}
	}
	return true
}
