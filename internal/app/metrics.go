// internal/app/metrics.go
package app

import (
	"time"

	"company_account_lifecycle/internal/domain/notification"
)

// MetricsRecorder receives pipeline counters. The Prometheus collector in
// infra/metrics implements it.
type MetricsRecorder interface {
	RecordDemoted(count int)
	RecordFailure(typ FailureType)
	RecordNotificationInserted(typ notification.Type)
	RecordNotificationsPurged(count int64)
	RecordRun(outcome string, duration time.Duration)
	RecordSkippedRun(trigger Trigger)
}

type nopMetrics struct{}

func (nopMetrics) RecordDemoted(int) {}
func (nopMetrics) RecordFailure(FailureType) {}
func (nopMetrics) RecordNotificationInserted(notification.Type) {}
func (nopMetrics) RecordNotificationsPurged(int64) {}
func (nopMetrics) RecordRun(string, time.Duration) {}
func (nopMetrics) RecordSkippedRun(Trigger) {}

func metricsOrNop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
