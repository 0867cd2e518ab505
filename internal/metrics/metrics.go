package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// AttemptsTotal tracks check-in attempts per site and result
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_attempts_total",
			Help: "Total number of check-in attempts",
		},
		[]string{"site", "result"},
	)

	// RunsTotal tracks finished runs per site and terminal state
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_runs_total",
			Help: "Total number of finished check-in runs",
		},
		[]string{"site", "state"},
	)

	// RunDuration tracks wall time of a run, retry waits included
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkin_run_duration_seconds",
			Help:    "Check-in run duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 180, 600, 1800, 3600},
		},
		[]string{"site"},
	)

	// LastSuccessTimestamp is the unix time of the last successful run
	LastSuccessTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "checkin_last_success_timestamp_seconds",
			Help: "Unix time of the last successful check-in",
		},
		[]string{"site"},
	)

	// NotificationsTotal tracks notification deliveries per channel and status
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_notifications_total",
			Help: "Total number of notification deliveries",
		},
		[]string{"channel", "status"},
	)
)

// RecordAttempt counts one attempt. result is "success" or the failure type.
func RecordAttempt(site, result string) {
	AttemptsTotal.WithLabelValues(site, result).Inc()
}

// RecordRun counts one finished run.
func RecordRun(site, state string, success bool, duration time.Duration, finished time.Time) {
	RunsTotal.WithLabelValues(site, state).Inc()
	RunDuration.WithLabelValues(site).Observe(duration.Seconds())
	if success {
		LastSuccessTimestamp.WithLabelValues(site).Set(float64(finished.Unix()))
	}
}

// RecordDelivery counts one notification delivery.
func RecordDelivery(channel, status string) {
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// Push sends the default registry to a Prometheus Pushgateway, grouped by job
// only. Every series already carries its site label, and the gateway rejects
// grouping labels that collide with metric labels.
// A scheduled one-shot process exits before any scrape, so this is how its
// metrics leave.
func Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
