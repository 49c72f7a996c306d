package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hotel_backoffice/internal/adapters/events"
	server "hotel_backoffice/internal/adapters/http_server"
	"hotel_backoffice/internal/adapters/observability"
	redisad "hotel_backoffice/internal/adapters/redis"
	"hotel_backoffice/internal/adapters/session"
	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
	"hotel_backoffice/internal/shared"
	"hotel_backoffice/internal/storage/memory"
	mysqlrepo "hotel_backoffice/internal/storage/mysql"
)

// store is everything the services need from a storage backend.
type store interface {
	domain.PackageRepository
	domain.BookingRepository
	domain.AdminRepository
	domain.NotificationRepository
	domain.OutboxRepository
}

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "hotel-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	metricsSrv := observability.Serve(cfg.MetricsAddr, reg)

	// storage
	var repo store
	switch cfg.Storage {
	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		repo = memory.New()
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		db.SetMaxOpenConns(20)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		repo = mysqlrepo.New(db)
	}

	// cache is optional; the catalog reads straight from storage without it
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; package cache disabled")
		} else {
			cache = rc
		}
	}

	// services
	v := app.NewValidator()
	catalog := app.NewCatalogService(repo, cache, cfg.CacheTTL, v)
	notifications := app.NewNotificationService(repo, v)
	notifications.OnCreated = observability.ObserveNotification
	bookings := app.NewBookingService(repo, catalog, v)
	admins := app.NewAdminDirectory(repo, v, app.Bootstrap{
		Email:    cfg.BootstrapEmail,
		Password: cfg.BootstrapPassword,
	}, cfg.BcryptCost)

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		if secret, err = session.RandomSecret(); err != nil {
			log.Fatal().Err(err).Msg("session secret")
		}
	}
	sessions, err := session.NewManager(secret, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("session manager")
	}

	// notification bus: relay -> gochannel -> router -> notifications
	wmLogger := events.NewLogger(log.Logger)
	bus := events.NewGoChannel(wmLogger)
	router, err := events.NewRouter(wmLogger, bus, notifications, events.RouterConfig{})
	if err != nil {
		log.Fatal().Err(err).Msg("event router")
	}
	relay := app.NewRelay(repo, events.NewPublisher(bus), app.RelayConfig{
		Interval:    cfg.OutboxInterval,
		BatchSize:   cfg.OutboxBatch,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})
	relay.OnResult = observability.ObserveOutbox

	// http
	proxies, err := server.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("TRUSTED_PROXIES")
	}
	srv := server.New(proxies...)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Catalog:        catalog,
		Availability:   app.NewAvailabilityService(repo, catalog),
		Bookings:       bookings,
		Notifications:  notifications,
		Admins:         admins,
		Sessions:       sessions,
		SecureCookies:  cfg.IsProd(),
		LoginLimiter:   server.NewIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		BookingLimiter: server.NewIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return router.Run(gctx) })
	g.Go(func() error {
		// gochannel drops messages published before the consumer subscribes
		select {
		case <-router.Running():
		case <-gctx.Done():
			return nil
		}
		return relay.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		if err := router.Close(); err != nil {
			log.Warn().Err(err).Msg("router close")
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("api stopped")
	}
	log.Info().Msg("api stopped")
}
