package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_backoffice/internal/adapters/observability"
	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
	"hotel_backoffice/internal/shared"
	mysqlrepo "hotel_backoffice/internal/storage/mysql"
)

// maintenance is a one-shot job meant for cron: upcoming check-in reminders,
// overdue pending flags and notification retention.
func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "hotel-maintenance")

	if cfg.Storage != "mysql" {
		log.Fatal().Str("storage", cfg.Storage).Msg("maintenance needs the mysql backend")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("workers", cfg.MaintenanceWorkers).
		Int("reminder_days", cfg.ReminderDays).
		Int("retention_days", cfg.NotificationRetentionDays).
		Msg("maintenance starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	notifications := app.NewNotificationService(repo, app.NewValidator())
	svc := app.NewMaintenanceService(repo, repo, notifications, cfg.MaintenanceWorkers)

	failed := false

	n, err := svc.RemindUpcomingCheckIns(ctx, cfg.ReminderDays)
	if err != nil {
		failed = true
		log.Error().Err(err).Msg("check-in reminders failed")
	} else {
		log.Info().Int("reminders", n).Msg("check-in reminders done")
	}

	// a pending booking older than one stay has nothing left to confirm
	n, err = svc.FlagOverduePending(ctx, domain.StayNights)
	if err != nil {
		failed = true
		log.Error().Err(err).Msg("overdue flags failed")
	} else {
		log.Info().Int("flagged", n).Msg("overdue flags done")
	}

	purged, err := svc.PurgeNotifications(ctx, cfg.NotificationRetentionDays)
	if err != nil {
		failed = true
		log.Error().Err(err).Msg("notification purge failed")
	} else {
		log.Info().Int64("deleted", purged).Msg("notification purge done")
	}

	purged, err = svc.PurgeOutbox(ctx, cfg.OutboxRetentionDays)
	if err != nil {
		failed = true
		log.Error().Err(err).Msg("outbox purge failed")
	} else {
		log.Info().Int64("deleted", purged).Msg("outbox purge done")
	}

	if failed {
		log.Fatal().Msg("maintenance completed with errors")
	}
	log.Info().Msg("maintenance completed")
}
