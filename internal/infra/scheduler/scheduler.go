package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"company_account_lifecycle/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultRunTimeout bounds a single scheduled pipeline run.
const DefaultRunTimeout = 30 * time.Minute

// DailyRunner is the pipeline entry point the scheduler drives.
type DailyRunner interface {
	RunDaily(ctx context.Context, trigger app.Trigger) *app.RunReport
}

// CivilClock is the part of the civil clock the scheduler needs.
type CivilClock interface {
	Location() *time.Location
	UntilNext(hour int) time.Duration
}

// DailyScheduler fires the pipeline once at startup (recovery) and then every
// day at the configured civil hour (periodic).
type DailyScheduler struct {
	cronEngine *cron.Cron
	runner     DailyRunner
	clock      CivilClock
	hour       int
	runTimeout time.Duration
	logger     *logrus.Entry

	baseCtx  context.Context
	cancel   context.CancelFunc
	recovery sync.WaitGroup
}

func NewDailyScheduler(runner DailyRunner, clock CivilClock, hour int, logger *logrus.Entry) *DailyScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &DailyScheduler{
		cronEngine: cron.New(
			cron.WithLocation(clock.Location()),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		runner:     runner,
		clock:      clock,
		hour:       hour,
		runTimeout: DefaultRunTimeout,
		logger:     logger,
	}
}

// CronSpec is the five-field schedule of the periodic trigger.
func (s *DailyScheduler) CronSpec() string {
	return fmt.Sprintf("0 %d * * *", s.hour)
}

// Start registers the periodic job, starts the cron engine and launches the
// recovery run in the background. Runs keep ctx's values but not its
// cancellation: only Stop cancels them, after in-flight runs have finished.
func (s *DailyScheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting daily scheduler...")
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	if _, err := s.cronEngine.AddFunc(s.CronSpec(), func() {
		s.logger.Info("Cron job triggered for daily run.")
		s.run(app.TriggerPeriodic)
	}); err != nil {
		s.cancel()
		return fmt.Errorf("could not add daily cron job %q: %w", s.CronSpec(), err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"cron_spec":   s.CronSpec(),
		"next_run_in": s.clock.UntilNext(s.hour).Round(time.Second).String(),
		"civil_zone":  s.clock.Location().String(),
	}).Info("Daily scheduler started.")

	s.recovery.Add(1)
	go func() {
		defer s.recovery.Done()
		s.logger.Info("Running recovery pass for anything missed while the service was down.")
		s.run(app.TriggerRecovery)
	}()
	return nil
}

func (s *DailyScheduler) run(trigger app.Trigger) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.runTimeout)
	defer cancel()

	report := s.runner.RunDaily(ctx, trigger)
	if report == nil {
		return
	}
	entry := s.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"trigger": trigger,
		"outcome": report.Outcome,
	})
	if report.Skipped {
		entry.Info("Scheduled run skipped.")
		return
	}
	entry.WithField("next_run_in", s.clock.UntilNext(s.hour).Round(time.Second).String()).Info("Scheduled run finished.")
}

// Stop waits for the running cron job and the recovery pass to finish.
func (s *DailyScheduler) Stop() {
	s.logger.Info("Stopping daily scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.recovery.Wait()
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("Daily scheduler gracefully stopped.")
}
