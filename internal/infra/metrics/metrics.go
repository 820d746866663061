// Package metrics exposes the pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"company_account_lifecycle/internal/app"
	"company_account_lifecycle/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "account_lifecycle"

var _ app.MetricsRecorder = (*Collector)(nil)

// Collector records pipeline metrics into a Prometheus registry.
type Collector struct {
	runs                 *prometheus.CounterVec
	runDuration          prometheus.Histogram
	skippedRuns          *prometheus.CounterVec
	demoted              prometheus.Counter
	failures             *prometheus.CounterVec
	notificationsCreated *prometheus.CounterVec
	notificationsPurged  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_sweeps_total",
			Help:      "Daily pipeline runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of a daily pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		skippedRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_skipped_total",
			Help:      "Runs rejected by the run guard, by trigger.",
		}, []string{"trigger"}),
		demoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_demoted_total",
			Help:      "Accounts demoted by the expiration sweep.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Recorded processing failures by type.",
		}, []string{"type"}),
		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_inserted_total",
			Help:      "Notifications created by type.",
		}, []string{"type"}),
		notificationsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_purged_total",
			Help:      "Expired notifications deleted.",
		}),
	}

	reg.MustRegister(
		c.runs,
		c.runDuration,
		c.skippedRuns,
		c.demoted,
		c.failures,
		c.notificationsCreated,
		c.notificationsPurged,
	)

	return c
}

func (c *Collector) RecordDemoted(count int) {
	c.demoted.Add(float64(count))
}

func (c *Collector) RecordFailure(typ app.FailureType) {
	c.failures.WithLabelValues(string(typ)).Inc()
}

func (c *Collector) RecordNotificationInserted(typ notification.Type) {
	c.notificationsCreated.WithLabelValues(string(typ)).Inc()
}

func (c *Collector) RecordNotificationsPurged(count int64) {
	c.notificationsPurged.Add(float64(count))
}

func (c *Collector) RecordRun(outcome string, duration time.Duration) {
	c.runs.WithLabelValues(outcome).Inc()
	c.runDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordSkippedRun(trigger app.Trigger) {
	c.skippedRuns.WithLabelValues(string(trigger)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
