package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/estateone/tour-engine/internal/api/router"
	"github.com/estateone/tour-engine/internal/availability"
	"github.com/estateone/tour-engine/internal/booking"
	appconfig "github.com/estateone/tour-engine/internal/config"
	"github.com/estateone/tour-engine/internal/http/handlers"
	"github.com/estateone/tour-engine/internal/meeting"
	"github.com/estateone/tour-engine/internal/notify"
	"github.com/estateone/tour-engine/internal/observability/metrics"
	"github.com/estateone/tour-engine/internal/property"
	"github.com/estateone/tour-engine/internal/reminder"
	"github.com/estateone/tour-engine/internal/settings"
	"github.com/estateone/tour-engine/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting tour-engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Stores
	bookingStore := booking.NewStore(pool)
	propertyStore := property.NewStore(pool)
	settingsStore := settings.NewStore(pool)
	windowStore := availability.NewStore(pool)

	// Metrics
	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	// Meeting provisioning: one provider per conferencing platform, each
	// reading its credentials from admin-managed settings.
	httpClient := &http.Client{Timeout: cfg.ProvisionTimeout}
	registry := meeting.NewRegistry(engineMetrics, logger, cfg.ProvisionTimeout,
		meeting.NewZoomProvider(settingsStore, httpClient, logger),
		meeting.NewGoogleMeetProvider(settingsStore, httpClient, logger),
		meeting.NewTeamsProvider(settingsStore, httpClient, logger),
	)

	// Notifications
	sender := buildEmailSender(ctx, cfg, logger)
	dispatcher := notify.NewDispatcher(sender, cfg.NotifyRecipients, cfg.PublicBaseURL, cfg.NotifyTimeout, engineMetrics, logger)

	// Lifecycle service and availability calculator
	service := booking.NewService(bookingStore, registry, dispatcher, propertyStore, engineMetrics, logger)
	calculator := availability.NewCalculator(windowStore, bookingStore, logger)

	// Reminder scheduler, leased through redis when configured so only one
	// instance dispatches per tick.
	var lease reminder.Lease = reminder.NopLease{}
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
		hostname, _ := os.Hostname()
		lease = reminder.NewRedisLease(redisClient, hostname, logger)
	}
	worker := reminder.NewWorker(bookingStore, propertyStore, dispatcher, lease, engineMetrics, logger,
		cfg.ReminderInterval, cfg.ReminderLeadTime, cfg.ReminderLeaseKey)
	go worker.Start(ctx)

	// HTTP surface
	r := router.New(&router.Config{
		Logger:             logger,
		Bookings:           handlers.NewBookingsHandler(service, logger),
		Availability:       handlers.NewAvailabilityHandler(calculator, windowStore, logger),
		Admin:              handlers.NewAdminHandler(service, worker, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the notification transport. Misconfiguration
// degrades to the stub sender so the engine still boots in development.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn("sendgrid selected but not configured, falling back to stub sender")
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Warn("failed to load AWS config, falling back to stub sender", "error", err)
			break
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn("ses selected but not configured, falling back to stub sender")
	}
	return notify.NewStubEmailSender(logger)
}
