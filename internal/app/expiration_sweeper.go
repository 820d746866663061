// internal/app/expiration_sweeper.go
package app

import (
	"context"
	"fmt"
	"sync"

	"company_account_lifecycle/internal/domain/account"

	"github.com/sirupsen/logrus"
)

// ExpirationResult is what an expiration sweep reports back to its caller.
type ExpirationResult struct {
	ProcessingDate string    `json:"processingDate"`
	DemotedCount   int       `json:"demotedCount"`
	Failures       []Failure `json:"failures"`
	Skipped        bool      `json:"skipped,omitempty"`
}

// ExpirationSweeper demotes approved paid accounts whose period has ended and
// archives a history entry for each of them.
type ExpirationSweeper struct {
	accountRepo account.Repository
	recorder    *HistoryRecorder
	clock       Clock
	concurrency int
	metrics     MetricsRecorder
	logger      *logrus.Entry
}

func NewExpirationSweeper(
	ar account.Repository,
	recorder *HistoryRecorder,
	clock Clock,
	concurrency int,
	metrics MetricsRecorder,
	logger *logrus.Entry,
) *ExpirationSweeper {
	return &ExpirationSweeper{
		accountRepo: ar,
		recorder:    recorder,
		clock:       clock,
		concurrency: concurrency,
		metrics:     metricsOrNop(metrics),
		logger:      logger,
	}
}

// failureList is the synchronised accumulator shared by per-account workers.
type failureList struct {
	mu    sync.Mutex
	items []Failure
}

func (l *failureList) add(f Failure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, f)
}

func (l *failureList) list() []Failure {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Failure, len(l.items))
	copy(out, l.items)
	return out
}

// Sweep never returns an error: every exit path yields a count (possibly 0)
// and the failures recorded along the way.
func (s *ExpirationSweeper) Sweep(ctx context.Context) ExpirationResult {
	today := s.clock.Today()
	todayDate := s.clock.TodayDate()
	log := s.logger.WithField("processing_date", today)
	result := ExpirationResult{ProcessingDate: today, Failures: []Failure{}}

	expired, err := s.accountRepo.FindExpired(ctx, today)
	if err != nil {
		log.WithError(err).Error("Failed to list expired accounts, aborting sweep")
		result.Failures = append(result.Failures, s.fail(Failure{
			Type:           FailureTotalSweep,
			Message:        "failed to list expired accounts",
			ProcessingDate: today,
			Details:        err.Error(),
		}))
		return result
	}
	log.WithField("expired_count", len(expired)).Info("Expired accounts found")

	failures := &failureList{}
	archive := func(ctx context.Context, a *account.Account) {
		if err := s.recorder.Archive(ctx, a, account.HistoryReasonExpired, todayDate); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"account_id":   a.ID,
				"failure_type": FailureHistoryInsert,
			}).Error("Failed to archive expired account, demotion will still proceed")
			failures.add(s.fail(Failure{
				Type:           FailureHistoryInsert,
				Message:        fmt.Sprintf("failed to archive history for account %d", a.ID),
				AccountID:      a.ID,
				CompanyName:    a.Name,
				ProcessingDate: today,
				Details:        err.Error(),
			}))
		}
	}

	attempted := make(map[int64]struct{}, len(expired))
	for _, a := range expired {
		attempted[a.ID] = struct{}{}
	}
	skipArchive := func(a *account.Account) {
		log.WithError(ctx.Err()).WithFields(logrus.Fields{
			"account_id":   a.ID,
			"failure_type": FailureHistoryInsert,
		}).Error("Run cancelled before the account was archived")
		failures.add(s.fail(Failure{
			Type:           FailureHistoryInsert,
			Message:        fmt.Sprintf("run cancelled before archiving account %d", a.ID),
			AccountID:      a.ID,
			CompanyName:    a.Name,
			ProcessingDate: today,
			Details:        context.Cause(ctx).Error(),
		}))
	}

	for _, a := range forEachConcurrently(ctx, s.concurrency, expired, archive) {
		skipArchive(a)
	}

	// The predicate is re-evaluated by the store; the earlier snapshot is not trusted.
	demoted, err := s.accountRepo.DemoteExpired(ctx, today)
	if err != nil {
		log.WithError(err).WithField("failure_type", FailureStatusUpdate).Error("Bulk demotion failed")
		failures.add(s.fail(Failure{
			Type:           FailureStatusUpdate,
			Message:        fmt.Sprintf("failed to demote %d expired accounts", len(expired)),
			ProcessingDate: today,
			Details:        err.Error(),
		}))
		result.Failures = failures.list()
		return result
	}

	// Accounts that expired between the read and the demotion still get their snapshot.
	var late []*account.Account
	for _, a := range demoted {
		if _, ok := attempted[a.ID]; !ok {
			late = append(late, a)
		}
	}
	if len(late) > 0 {
		log.WithField("late_count", len(late)).Warn("Accounts expired during the sweep, archiving from demotion snapshot")
		for _, a := range forEachConcurrently(ctx, s.concurrency, late, archive) {
			skipArchive(a)
		}
	}

	result.DemotedCount = len(demoted)
	result.Failures = failures.list()
	s.metrics.RecordDemoted(result.DemotedCount)

	log.WithFields(logrus.Fields{
		"demoted_count": result.DemotedCount,
		"failure_count": len(result.Failures),
	}).Info("Expiration sweep finished")
	return result
}

func (s *ExpirationSweeper) fail(f Failure) Failure {
	s.metrics.RecordFailure(f.Type)
	return f
}
