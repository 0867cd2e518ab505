// Package notify fans a run report out to independent notification channels.
// A failing channel is logged and skipped; it never reaches the caller.
package notify

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingErrcode is returned when a webhook reply has no errcode field.
	ErrMissingErrcode = errors.New("response missing errcode")
)

// Channel is one delivery path for the run notification.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Enabled is false when a required credential is missing.
	Enabled() bool

	// MaxContentLength is the content limit in characters, 0 for none.
	MaxContentLength() int

	// Send delivers one notification.
	Send(ctx context.Context, title, content string) error
}

// Composer is implemented by channels that deliver title and content as a
// single text body. The composed text is what gets sanitised and truncated.
type Composer interface {
	Compose(title, content string) string
}

// ChannelError describes a failed delivery as specifically as possible.
type ChannelError struct {
	Channel    string
	StatusCode int  // HTTP status, 0 when no response arrived
	Code       *int // provider error code, e.g. errcode
	Message    string
	Err        error
}

func (e *ChannelError) Error() string {
	switch {
	case e.Code != nil:
		return fmt.Sprintf("%s: errcode %d: %s", e.Channel, *e.Code, e.Message)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: HTTP %d: %s: %v", e.Channel, e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Channel, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: unreachable: %v", e.Channel, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Channel, e.Message)
	}
}

func (e *ChannelError) Unwrap() error { return e.Err }
