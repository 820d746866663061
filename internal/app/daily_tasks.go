// internal/app/daily_tasks.go
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"company_account_lifecycle/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Trigger names what started a pipeline run.
type Trigger string

const (
	TriggerRecovery       Trigger = "recovery"
	TriggerPeriodic       Trigger = "periodic"
	TriggerManualHTTP     Trigger = "manual_http"
	TriggerManualTelegram Trigger = "manual_telegram"
)

// Run outcomes reported to metrics.
const (
	OutcomeCompleted       = "completed"
	OutcomePartiallyFailed = "partially_failed"
	OutcomeFailed          = "failed"
	OutcomeSkipped         = "skipped"
)

// RunReport describes one invocation of the daily pipeline.
type RunReport struct {
	RunID                 string         `json:"runId"`
	Trigger               Trigger        `json:"trigger"`
	ProcessingDate        string         `json:"processingDate"`
	StartedAt             time.Time      `json:"startedAt"`
	FinishedAt            time.Time      `json:"finishedAt"`
	Skipped               bool           `json:"skipped"`
	SkipReason            string         `json:"skipReason,omitempty"`
	Outcome               string         `json:"outcome"`
	DemotedCount          int            `json:"demotedCount"`
	Notifications         *ComposeResult `json:"notifications,omitempty"`
	NotificationsDeferred bool           `json:"notificationsDeferred,omitempty"`
	AlreadyNotifiedToday  int            `json:"alreadyNotifiedToday"`
	Failures              []Failure      `json:"failures"`
}

// NotificationTriggerResult is returned to a manual notification trigger.
type NotificationTriggerResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// FailureAlerter forwards a run's failures to a human. Best effort.
type FailureAlerter interface {
	AlertFailures(ctx context.Context, report *RunReport) error
}

// DailyTaskConfig tunes the pipeline.
type DailyTaskConfig struct {
	// NotifyFromHour defers the composer stage until this civil hour.
	NotifyFromHour int
}

// DailyTaskService runs the expiration sweep followed by notification
// composition. It is safe to invoke redundantly from any trigger.
type DailyTaskService struct {
	sweeper   *ExpirationSweeper
	composer  *NotificationComposer
	notifRepo notification.Repository
	guard     *RunGuard
	clock     Clock
	alerter   FailureAlerter
	metrics   MetricsRecorder
	cfg       DailyTaskConfig
	logger    *logrus.Entry

	mu         sync.RWMutex
	lastReport *RunReport
}

func NewDailyTaskService(
	sweeper *ExpirationSweeper,
	composer *NotificationComposer,
	nr notification.Repository,
	guard *RunGuard,
	clock Clock,
	alerter FailureAlerter, // may be nil
	metrics MetricsRecorder,
	cfg DailyTaskConfig,
	logger *logrus.Entry,
) *DailyTaskService {
	return &DailyTaskService{
		sweeper:   sweeper,
		composer:  composer,
		notifRepo: nr,
		guard:     guard,
		clock:     clock,
		alerter:   alerter,
		metrics:   metricsOrNop(metrics),
		cfg:       cfg,
		logger:    logger,
	}
}

// RunDaily executes the full pipeline. It never panics or returns an error to
// the trigger; everything is in the report.
func (s *DailyTaskService) RunDaily(ctx context.Context, trigger Trigger) (report *RunReport) {
	report = &RunReport{
		RunID:          uuid.NewString(),
		Trigger:        trigger,
		ProcessingDate: s.clock.Today(),
		StartedAt:      s.clock.Now(),
		Failures:       []Failure{},
	}
	log := s.logger.WithFields(logrus.Fields{
		"run_id":          report.RunID,
		"trigger":         trigger,
		"processing_date": report.ProcessingDate,
	})

	if !s.guard.TryAcquire() {
		report.Skipped = true
		report.SkipReason = "another run is in progress or finished moments ago"
		report.Outcome = OutcomeSkipped
		report.FinishedAt = s.clock.Now()
		s.metrics.RecordSkippedRun(trigger)
		log.Info("Daily run skipped by run guard")
		return report
	}

	log.Info("Daily run started")
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Daily run aborted by panic")
			report.Failures = append(report.Failures, Failure{
				Type:           FailureTotalSweep,
				Message:        "daily run aborted unexpectedly",
				ProcessingDate: report.ProcessingDate,
				Details:        fmt.Sprint(r),
			})
			s.metrics.RecordFailure(FailureTotalSweep)
		}
		report.FinishedAt = s.clock.Now()
		report.Outcome = outcomeOf(report.Failures)
		s.guard.Release(report.Outcome != OutcomeFailed)
		s.metrics.RecordRun(report.Outcome, report.FinishedAt.Sub(report.StartedAt))
		s.remember(report)
		s.alert(ctx, log, report)

		log.WithFields(logrus.Fields{
			"outcome":       report.Outcome,
			"demoted_count": report.DemotedCount,
			"failure_count": len(report.Failures),
		}).Info("Daily run finished")
	}()

	expiration := s.sweeper.Sweep(ctx)
	report.DemotedCount = expiration.DemotedCount
	report.Failures = append(report.Failures, expiration.Failures...)

	if !s.clock.IsAfterHour(s.cfg.NotifyFromHour) {
		report.NotificationsDeferred = true
		log.WithField("notify_from_hour", s.cfg.NotifyFromHour).Info("Before the notification hour, deferring reminders to the periodic run")
		return report
	}

	if count, err := s.notifRepo.CountCreatedOn(ctx, report.ProcessingDate); err != nil {
		log.WithError(err).Warn("Failed to count today's notifications")
	} else {
		report.AlreadyNotifiedToday = count
		if count > 0 {
			log.WithField("already_notified", count).Info("Notifications already issued today, only missing ones will be added")
		}
	}

	composed := s.composer.Compose(ctx)
	report.Notifications = &composed
	return report
}

// RunExpirationManually is the administrative entry point for the daily run.
// It reports demotions and failures in the shape manual callers expect.
func (s *DailyTaskService) RunExpirationManually(ctx context.Context, trigger Trigger) ExpirationResult {
	report := s.RunDaily(ctx, trigger)
	return ExpirationResult{
		ProcessingDate: report.ProcessingDate,
		DemotedCount:   report.DemotedCount,
		Failures:       report.Failures,
		Skipped:        report.Skipped,
	}
}

// RunNotificationsManually runs only the composer. Safe to repeat: already
// issued reminders are skipped.
func (s *DailyTaskService) RunNotificationsManually(ctx context.Context) NotificationTriggerResult {
	composed := s.composer.Compose(ctx)

	if composed.WindowErrors > 0 {
		return NotificationTriggerResult{
			Success: false,
			Message: fmt.Sprintf("notification run finished with %d failed reminder windows; %d notifications created", composed.WindowErrors, composed.Inserted),
			Count:   composed.Inserted,
		}
	}
	return NotificationTriggerResult{
		Success: true,
		Message: fmt.Sprintf("%d notifications created (%d already existed)", composed.Inserted, composed.Duplicates),
		Count:   composed.Inserted,
	}
}

// LastReport returns the most recent non-skipped run, or nil.
func (s *DailyTaskService) LastReport() *RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

func (s *DailyTaskService) remember(report *RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = report
}

func (s *DailyTaskService) alert(ctx context.Context, log *logrus.Entry, report *RunReport) {
	if s.alerter == nil || len(report.Failures) == 0 {
		return
	}
	if err := s.alerter.AlertFailures(ctx, report); err != nil {
		log.WithError(err).Warn("Failed to deliver failure alert")
	}
}

func outcomeOf(failures []Failure) string {
	switch {
	case hasFailure(failures, FailureTotalSweep):
		return OutcomeFailed
	case len(failures) > 0:
		return OutcomePartiallyFailed
	default:
		return OutcomeCompleted
	}
}
