// Package action implements site-specific check-in attempts. Each Execute call
// is one attempt and classifies every exit path into a domain.Outcome.
package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/vietddude/checkin/internal/core/domain"
)

const maxBodyBytes = 1 << 20

// newHTTPClient returns a client that never follows redirects, so a bounce to
// a login page stays visible to the classifier.
func newHTTPClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// classifyTransport maps a failed round trip to a retryable outcome.
func classifyTransport(step string, err error) domain.Outcome {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NetworkFailure(fmt.Sprintf("%s timed out (network jitter)", step))
	}
	return domain.NetworkFailure(fmt.Sprintf("%s failed, cannot reach server: %v", step, err))
}

// classifyStatus returns a retryable failure for any non-2xx status.
func classifyStatus(step string, resp *http.Response) (domain.Outcome, bool) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return domain.Outcome{}, false
	}
	return domain.NetworkFailure(fmt.Sprintf("%s failed with HTTP %d", step, resp.StatusCode)), true
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// snippet shortens raw response text for messages.
func snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
