package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"company_account_lifecycle/internal/app"
	"company_account_lifecycle/internal/infra/clock"
	"company_account_lifecycle/internal/infra/config"
	idb "company_account_lifecycle/internal/infra/database"
	"company_account_lifecycle/internal/infra/httpapi"
	"company_account_lifecycle/internal/infra/logger"
	"company_account_lifecycle/internal/infra/metrics"
	"company_account_lifecycle/internal/infra/scheduler"
	"company_account_lifecycle/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.ForComponent("main")

	mainLogger.WithFields(logrus.Fields{
		"log_level":      cfg.LogLevel,
		"environment":    cfg.Environment,
		"civil_timezone": cfg.CivilTimezone,
		"daily_run_hour": cfg.DailyRunHour,
		"admin_bot":      cfg.TelegramToken != "",
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	civilClock, err := clock.New(cfg.CivilTimezone)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load civil timezone")
	}

	if cfg.RunMigrationsOnStart {
		version, err := idb.RunMigrations(cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database migrations")
		}
		mainLogger.WithField("schema_version", version).Info("Database migrations applied")
	}

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully")

	accountRepo := idb.NewPostgresAccountRepository(db)
	historyRepo := idb.NewPostgresHistoryRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)
	settingsRepo := idb.NewPostgresSettingsRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	var (
		bot     *telebot.Bot
		alerter app.FailureAlerter
	)
	if cfg.TelegramToken != "" {
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := logger.ForComponent("telebot").WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		alerter = telegram.NewFailureAlerter(telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID, logger.ForComponent("alerter"))
	}

	recorder := app.NewHistoryRecorder(historyRepo, logger.ForComponent("history"))
	sweeper := app.NewExpirationSweeper(accountRepo, recorder, civilClock, cfg.WorkerConcurrency, collector, logger.ForComponent("sweeper"))
	composer := app.NewNotificationComposer(accountRepo, notificationRepo, settingsRepo, civilClock,
		app.ComposerConfig{TTL: cfg.NotificationTTL, Concurrency: cfg.WorkerConcurrency}, collector, logger.ForComponent("composer"))
	guard := app.NewRunGuard(cfg.RunCooldown, civilClock.Now)
	tasks := app.NewDailyTaskService(sweeper, composer, notificationRepo, guard, civilClock, alerter, collector,
		app.DailyTaskConfig{NotifyFromHour: cfg.DailyRunHour}, logger.ForComponent("daily_tasks"))

	// The shutdown signal must not abort an admin-triggered run midway.
	botCtx, cancelBot := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBot()
	if bot != nil {
		adminService := app.NewAdminService(tasks, accountRepo, recorder, civilClock, cfg.AdminTelegramID)
		botLogger := logger.ForComponent("bot")
		telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, botLogger)
		telegram.RegisterAdminHandlers(botCtx, bot, telegram.NewAdminHandlers(adminService, cfg.AdminTelegramID, botLogger))
		go bot.Start()
		mainLogger.Info("Admin bot started")
	}

	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Runner:        tasks,
		Notifications: notificationRepo,
		History:       historyRepo,
		HealthChecker: db,
		Gatherer:      registry,
		AdminToken:    cfg.AdminAPIToken,
		TriggerLimit:  httpapi.NewManualTriggerLimiter(cfg.ManualTriggerRatePerMinute),
		Now:           civilClock.Now,
		Logger:        logger.ForComponent("http"),
	})
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // manual daily runs are synchronous
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", server.Addr).Info("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Error("HTTP server listen error")
			stop()
		}
	}()

	dailyScheduler := scheduler.NewDailyScheduler(tasks, civilClock, cfg.DailyRunHour, logger.ForComponent("scheduler"))
	if err := dailyScheduler.Start(ctx); err != nil {
		mainLogger.WithError(err).Fatal("Could not start daily scheduler")
	}

	mainLogger.Info("Application setup complete")
	<-ctx.Done()
	mainLogger.Info("Shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	if bot != nil {
		bot.Stop()
	}
	dailyScheduler.Stop()

	mainLogger.Info("Application shut down gracefully")
}
