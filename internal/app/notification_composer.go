// internal/app/notification_composer.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"company_account_lifecycle/internal/domain/account"
	"company_account_lifecycle/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// ComposeResult summarises one composer pass.
type ComposeResult struct {
	ProcessingDate string `json:"processingDate"`
	Inserted       int    `json:"inserted"`
	Duplicates     int    `json:"duplicates"`
	Failed         int    `json:"failed"`
	Purged         int64  `json:"purged"`
	WindowErrors   int    `json:"windowErrors"`
}

// ComposerConfig tunes the composer.
type ComposerConfig struct {
	TTL         time.Duration // notification lifetime, defaults to 7 days
	Concurrency int
}

// NotificationComposer issues end-date and tax invoice reminders for the
// current civil day and purges expired notifications.
type NotificationComposer struct {
	accountRepo  account.Repository
	notifRepo    notification.Repository
	settingsRepo notification.SettingsRepository
	clock        Clock
	ttl          time.Duration
	concurrency  int
	metrics      MetricsRecorder
	logger       *logrus.Entry
}

func NewNotificationComposer(
	ar account.Repository,
	nr notification.Repository,
	sr notification.SettingsRepository,
	clock Clock,
	cfg ComposerConfig,
	metrics MetricsRecorder,
	logger *logrus.Entry,
) *NotificationComposer {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = notification.DefaultTTL
	}
	return &NotificationComposer{
		accountRepo:  ar,
		notifRepo:    nr,
		settingsRepo: sr,
		clock:        clock,
		ttl:          ttl,
		concurrency:  cfg.Concurrency,
		metrics:      metricsOrNop(metrics),
		logger:       logger,
	}
}

// composeCounters is shared by the per-item workers of one pass.
type composeCounters struct {
	inserted   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// reminder is one candidate notification before the dedup check.
type reminder struct {
	accountID int64
	typ       notification.Type
	subject   string
	date      string
}

// Compose never fails as a whole: each window is processed independently and
// per-item insertion failures are logged and skipped.
func (c *NotificationComposer) Compose(ctx context.Context) ComposeResult {
	today := c.clock.Today()
	log := c.logger.WithField("processing_date", today)
	result := ComposeResult{ProcessingDate: today}
	counters := &composeCounters{}

	for _, w := range notification.EndDateWindows {
		reminders, err := c.endDateReminders(ctx, w.Type, w.Offset)
		if err != nil {
			log.WithError(err).WithField("type", w.Type).Error("Failed to query accounts for reminder window, skipping window")
			result.WindowErrors++
			continue
		}
		c.issueAll(ctx, today, reminders, counters)
	}

	taxReminders, err := c.taxInvoiceReminders(ctx)
	if err != nil {
		log.WithError(err).WithField("type", notification.TypeTaxInvoice).Error("Failed to build tax invoice reminders, skipping window")
		result.WindowErrors++
	} else {
		c.issueAll(ctx, today, taxReminders, counters)
	}

	purged, err := c.notifRepo.DeleteExpired(ctx, c.clock.Now())
	if err != nil {
		log.WithError(err).Error("Failed to purge expired notifications")
	} else {
		result.Purged = purged
		c.metrics.RecordNotificationsPurged(purged)
	}

	result.Inserted = int(counters.inserted.Load())
	result.Duplicates = int(counters.duplicates.Load())
	result.Failed = int(counters.failed.Load())

	log.WithFields(logrus.Fields{
		"inserted":      result.Inserted,
		"duplicates":    result.Duplicates,
		"failed":        result.Failed,
		"purged":        result.Purged,
		"window_errors": result.WindowErrors,
	}).Info("Notification composition finished")
	return result
}

// accountsEndingIn returns approved paid accounts whose period ends days from today.
func (c *NotificationComposer) accountsEndingIn(ctx context.Context, days int) ([]*account.Account, error) {
	return c.accountRepo.FindByEndDate(ctx, c.clock.PlusDays(days))
}

func (c *NotificationComposer) endDateReminders(ctx context.Context, typ notification.Type, offset int) ([]reminder, error) {
	accounts, err := c.accountsEndingIn(ctx, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts ending in %d days: %w", offset, err)
	}
	date := c.clock.PlusDays(offset)
	reminders := make([]reminder, 0, len(accounts))
	for _, a := range accounts {
		reminders = append(reminders, reminder{accountID: a.ID, typ: typ, subject: a.Name, date: date})
	}
	return reminders, nil
}

func (c *NotificationComposer) taxInvoiceReminders(ctx context.Context) ([]reminder, error) {
	settings, err := c.settingsRepo.ListDueOn(ctx, c.clock.TodayDate())
	if err != nil {
		return nil, fmt.Errorf("failed to list due tax invoice settings: %w", err)
	}

	today := c.clock.Today()
	seen := make(map[int64]struct{})
	var reminders []reminder
	for _, s := range settings {
		accounts, err := c.accountRepo.FindApprovedByName(ctx, s.CompanyName)
		if err != nil {
			c.logger.WithError(err).WithField("company_name", s.CompanyName).Error("Failed to find accounts for tax invoice setting")
			continue
		}
		if len(accounts) == 0 {
			c.logger.WithField("company_name", s.CompanyName).Warn("No approved account matches tax invoice setting")
			continue
		}
		for _, a := range accounts {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			reminders = append(reminders, reminder{accountID: a.ID, typ: notification.TypeTaxInvoice, subject: s.CompanyName, date: today})
		}
	}
	return reminders, nil
}

func (c *NotificationComposer) issueAll(ctx context.Context, today string, reminders []reminder, counters *composeCounters) {
	skipped := forEachConcurrently(ctx, c.concurrency, reminders, func(ctx context.Context, r reminder) {
		c.issue(ctx, today, r, counters)
	})
	if len(skipped) > 0 {
		c.logger.WithError(ctx.Err()).WithFields(logrus.Fields{
			"processing_date": today,
			"skipped_count":   len(skipped),
			"failure_type":    FailureNotificationInsert,
		}).Error("Run cancelled before all reminders were issued")
		counters.failed.Add(int64(len(skipped)))
		c.metrics.RecordFailure(FailureNotificationInsert)
	}
}

func (c *NotificationComposer) issue(ctx context.Context, today string, r reminder, counters *composeCounters) {
	log := c.logger.WithFields(logrus.Fields{
		"account_id":      r.accountID,
		"type":            r.typ,
		"processing_date": today,
	})

	existing, err := c.notifRepo.CountForDay(ctx, r.accountID, r.typ, today)
	if err != nil {
		log.WithError(err).WithField("failure_type", FailureNotificationInsert).Error("Failed to check for existing notification")
		counters.failed.Add(1)
		c.metrics.RecordFailure(FailureNotificationInsert)
		return
	}
	if existing > 0 {
		log.Debug("Notification already issued today, skipping")
		counters.duplicates.Add(1)
		return
	}

	title, body := r.typ.Compose(r.subject, r.date)
	now := c.clock.Now()
	n := &notification.Notification{
		AccountID: r.accountID,
		Type:      r.typ,
		Title:     title,
		Message:   body,
		CreatedOn: today,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	id, err := c.notifRepo.Insert(ctx, n)
	if err != nil {
		if errors.Is(err, notification.ErrDuplicateNotification) {
			log.Info("Notification inserted concurrently by another run, skipping")
			counters.duplicates.Add(1)
			return
		}
		log.WithError(err).WithField("failure_type", FailureNotificationInsert).Error("Failed to insert notification")
		counters.failed.Add(1)
		c.metrics.RecordFailure(FailureNotificationInsert)
		return
	}

	log.WithField("notification_id", id).Info("Notification inserted")
	counters.inserted.Add(1)
	c.metrics.RecordNotificationInserted(r.typ)
}
