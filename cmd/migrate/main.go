package main

import (
	"context"
	"flag"
	"time"

	"company_account_lifecycle/internal/infra/config"
	idb "company_account_lifecycle/internal/infra/database"
	"company_account_lifecycle/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

func main() {
	fixLegacy := flag.Bool("fix-legacy-end-dates", false, "apply the one-time legacy end-date shift after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	log := logger.ForComponent("migrate")

	version, err := idb.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not apply database migrations")
	}
	log.WithField("schema_version", version).Info("Database schema is up to date")

	if !*fixLegacy {
		return
	}
	if cfg.LegacyFixCutover == "" {
		log.Fatal("LEGACY_FIX_CUTOVER must be set to apply the legacy end-date fix-up")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()

	result, err := idb.ApplyLegacyEndDateFix(ctx, db, cfg.LegacyFixCutover, cfg.LegacyFixShiftDays)
	if err != nil {
		log.WithError(err).Fatal("Legacy end-date fix-up failed")
	}
	fields := logrus.Fields{
		"cutover":    cfg.LegacyFixCutover,
		"shift_days": cfg.LegacyFixShiftDays,
	}
	if result.AlreadyApplied {
		log.WithFields(fields).Info("Legacy end-date fix-up was already applied, nothing to do")
		return
	}
	log.WithFields(fields).WithField("shifted_rows", result.ShiftedRows).Info("Legacy end-date fix-up applied")
}
