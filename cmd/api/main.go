package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/BruksfildServices01/barbershop-booking/internal/audit"
	"github.com/BruksfildServices01/barbershop-booking/internal/cache"
	"github.com/BruksfildServices01/barbershop-booking/internal/config"
	dbpkg "github.com/BruksfildServices01/barbershop-booking/internal/db"
	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	infraRepo "github.com/BruksfildServices01/barbershop-booking/internal/infra/repository"
	"github.com/BruksfildServices01/barbershop-booking/internal/logging"
	"github.com/BruksfildServices01/barbershop-booking/internal/middleware"
	"github.com/BruksfildServices01/barbershop-booking/internal/notify"
	"github.com/BruksfildServices01/barbershop-booking/internal/reminder"
	"github.com/BruksfildServices01/barbershop-booking/internal/routes"
	"github.com/BruksfildServices01/barbershop-booking/internal/timezone"
)

const reminderLockKey = "reminder:cycle-lock"

func main() {

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ======================================================
	// 🗄️ BANCO
	// ======================================================
	db := dbpkg.NewDB(cfg)

	created, err := dbpkg.EnsureAdminUser(db, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to seed admin user")
	}
	if created {
		logging.Info().Str("email", cfg.AdminEmail).Msg("admin user created")
	}

	// ======================================================
	// 🕘 AGENDA
	// ======================================================
	loc := timezone.Location(cfg.BusinessTimezone)
	if loc.String() != cfg.BusinessTimezone {
		logging.Warn().
			Str("configured", cfg.BusinessTimezone).
			Str("using", loc.String()).
			Msg("unknown business timezone")
	}

	grid, err := domain.NewGrid(cfg.BusinessOpen, cfg.BusinessClose)
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid business hours")
	}

	// ======================================================
	// 🧰 REDIS (OPCIONAL)
	// ======================================================
	var (
		rdb          *redis.Client
		availability cache.Availability = cache.Nop{}
		limiter      middleware.Limiter = middleware.NewIPLimiter(cfg.PublicRateLimit)
		schedOpts    []reminder.Option
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logging.Warn().Err(err).Msg("redis unreachable at startup; cache and locks fail open")
		}

		availability = cache.NewRedisAvailability(rdb, cfg.AvailabilityCacheTTL, logging.WithComponent("availability-cache"))
		limiter = middleware.NewRedisLimiter(rdb, cfg.PublicRateLimit)
		schedOpts = append(schedOpts, reminder.WithLocker(reminder.NewRedisLocker(rdb, reminderLockKey)))
	}

	// ======================================================
	// 📣 NOTIFICAÇÕES
	// ======================================================
	notifyLog := logging.WithComponent("notify")

	var sms notify.SMSSender = notify.NewLogSMSSender(notifyLog)
	if cfg.SMSConfigured() {
		sms = notify.NewTwilioSender(notify.TwilioConfig{
			AccountSID:  cfg.TwilioAccountSID,
			AuthToken:   cfg.TwilioAuthToken,
			FromNumber:  cfg.TwilioFromNumber,
			CountryCode: cfg.SMSDefaultCountryCode,
		}, notifyLog)
	} else {
		logging.Warn().Msg("twilio not configured; sms reminders are only logged")
	}

	var email notify.EmailSender = notify.NewLogEmailSender(notifyLog)
	if cfg.SMTPConfigured() {
		email = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		logging.Warn().Msg("smtp not configured; email reminders are only logged")
	}

	breakerCfg := notify.DefaultBreakerConfig()
	sms = notify.NewBreakerSMS(sms, breakerCfg, notifyLog)
	email = notify.NewBreakerEmail(email, breakerCfg, notifyLog)

	// ======================================================
	// 🔔 LEMBRETES + 🧾 AUDITORIA
	// ======================================================
	scheduler := reminder.New(
		infraRepo.NewReminderGormRepository(db),
		sms,
		email,
		logging.Logger(),
		reminder.Config{
			CheckInterval:   cfg.ReminderInterval,
			DispatchTimeout: cfg.ReminderDispatchTimeout,
			Location:        loc,
		},
		schedOpts...,
	)
	if cfg.ReminderEnabled {
		scheduler.Start(ctx)
	}

	auditDispatcher := audit.NewDispatcher(audit.New(db), logging.WithComponent("audit"))

	// ======================================================
	// 🌐 HTTP
	// ======================================================
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		DB:        db,
		Config:    cfg,
		Grid:      grid,
		Location:  loc,
		Cache:     availability,
		Audit:     auditDispatcher,
		Scheduler: scheduler,
		Limiter:   limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", cfg.Addr()).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http shutdown")
	}

	scheduler.Stop()
	auditDispatcher.Close()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logging.Error().Err(err).Msg("redis close")
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logging.Info().Msg("bye")
}
