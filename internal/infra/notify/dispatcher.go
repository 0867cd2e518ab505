package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DeliveryStatus is the per-channel result of a dispatch.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliverySkipped DeliveryStatus = "skipped"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Delivery records what happened on one channel.
type Delivery struct {
	Channel string
	Status  DeliveryStatus
	Err     error
}

// Report lists deliveries in channel registration order.
type Report struct {
	Deliveries []Delivery
}

// Count returns how many deliveries ended with the given status.
func (r Report) Count(status DeliveryStatus) int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Status == status {
			n++
		}
	}
	return n
}

// Dispatcher sends one notification to every registered channel.
type Dispatcher struct {
	channels []Channel
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(log *slog.Logger, channels ...Channel) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{channels: channels, log: log}
}

// Channels returns the registered channels.
func (d *Dispatcher) Channels() []Channel {
	return d.channels
}

// Notify delivers title and content to every channel. Channel failures are
// logged and recorded in the report; Notify itself cannot fail.
func (d *Dispatcher) Notify(ctx context.Context, title, content string) Report {
	var report Report
	for _, ch := range d.channels {
		report.Deliveries = append(report.Deliveries, d.deliver(ctx, ch, title, content))
	}
	return report
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, title, content string) (dl Delivery) {
	dl.Channel = ch.Name()
	log := d.log.With("channel", dl.Channel)

	defer func() {
		if r := recover(); r != nil {
			dl.Status = DeliveryFailed
			dl.Err = &ChannelError{Channel: dl.Channel, Message: fmt.Sprintf("panic: %v", r)}
			log.Error("Notification channel panicked", "panic", r)
		}
	}()

	if !ch.Enabled() {
		log.Info("Notification channel not configured, skipping")
		dl.Status = DeliverySkipped
		return dl
	}

	message := content
	if c, ok := ch.(Composer); ok {
		message = c.Compose(title, content)
	}
	message = Sanitize(message, ch.MaxContentLength())

	if err := ch.Send(ctx, sanitizeTitle(title), message); err != nil {
		dl.Status = DeliveryFailed
		dl.Err = err
		log.Error("Notification failed", failureAttrs(err)...)
		return dl
	}

	dl.Status = DeliverySent
	log.Info("Notification sent")
	return dl
}

// failureAttrs pulls the most specific diagnostic out of err.
func failureAttrs(err error) []any {
	attrs := []any{"error", err}
	var chErr *ChannelError
	if !errors.As(err, &chErr) {
		return attrs
	}
	if chErr.Code != nil {
		attrs = append(attrs, "errcode", *chErr.Code)
	}
	if chErr.StatusCode != 0 {
		attrs = append(attrs, "status_code", chErr.StatusCode)
	}
	if chErr.StatusCode == 0 && chErr.Code == nil && chErr.Err != nil {
		attrs = append(attrs, "reason", "unreachable")
	}
	return attrs
}
