package control

import (
	"fmt"
	"strings"

	"github.com/vietddude/checkin/internal/core/domain"
)

// Text renders the notification body. Each line says plainly whether the
// account succeeded and, if not, whether an operator has to step in.
func (s Summary) Text() string {
	var b strings.Builder

	ok := 0
	for _, r := range s.Results {
		if r.Result.State == domain.RunStateSuccess {
			ok++
		}
	}
	fmt.Fprintf(&b, "%d of %d accounts checked in\n", ok, len(s.Results))

	for _, r := range s.Results {
		fmt.Fprintf(&b, "[%s] %s\n", r.Account, describe(r.Result))
	}
	return strings.TrimRight(b.String(), "\n")
}

func describe(r domain.RunResult) string {
	o := r.Outcome
	switch r.State {
	case domain.RunStateSuccess:
		return "success: " + o.Message
	case domain.RunStateExhaustedRetries:
		return fmt.Sprintf("failed after %d attempts, retries exhausted: %s", r.AttemptsUsed, o.Message)
	}

	switch o.Failure {
	case domain.FailureTypeAuthentication:
		return "failed, refresh credentials: " + o.Message
	case domain.FailureTypeConfiguration:
		return "failed, check configuration: " + o.Message
	default:
		return "failed: " + o.Message
	}
}
