package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carebook/carebook-platform/internal/api/router"
	"github.com/carebook/carebook-platform/internal/appointments"
	appconfig "github.com/carebook/carebook-platform/internal/config"
	"github.com/carebook/carebook-platform/internal/notify"
	"github.com/carebook/carebook-platform/internal/observability/metrics"
	"github.com/carebook/carebook-platform/internal/payments"
	"github.com/carebook/carebook-platform/internal/practitioners"
	reconcileworker "github.com/carebook/carebook-platform/internal/worker/reconcile"
	"github.com/carebook/carebook-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting carebook API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() { _ = redisClient.Close() }()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	// Repositories
	practitionerRepo := practitioners.NewRepository(pool)
	appointmentRepo := appointments.NewRepository(pool)

	// Notifications: Redis pub/sub always, email only when configured.
	notifiers := []notify.Notifier{
		notify.NewRedisPublisher(redisClient, cfg.NotifyStatusChannel),
	}
	if cfg.NotifyEmailEnabled {
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		notifiers = append(notifiers, notify.NewEmailNotifier(sender, cfg.NotifyEmailRecipient, logger))
	}
	fanout := notify.NewFanout(logger, notifiers...)

	// Payment flow
	stripeClient := payments.NewStripeCheckoutClient(
		cfg.StripeSecretKey,
		cfg.StripeSuccessURL,
		cfg.StripeCancelURL,
		logger.Component("stripe"),
	).WithDryRun(cfg.StripeDryRun)

	issuer := payments.NewIssuer(appointmentRepo, stripeClient, practitionerRepo, logger.Component("issuer")).
		WithCurrency(cfg.Currency).
		WithDefaultAmount(int64(cfg.ConsultationFeeCents)).
		WithMetrics(paymentMetrics)

	reconciler := payments.NewReconciler(appointmentRepo, fanout, logger.Component("reconciler")).
		WithMetrics(paymentMetrics)

	dedupe := payments.NewRedisDedupe(redisClient, cfg.WebhookDedupeTTL)
	webhookHandler := payments.NewWebhookHandler(
		cfg.StripeWebhookSecret,
		appointmentRepo,
		reconciler,
		dedupe,
		logger.Component("webhook"),
	).WithMetrics(paymentMetrics)

	// Booking intake
	window := appointments.BookingWindow{
		MinLead:  cfg.BookingMinLead,
		MaxAhead: cfg.BookingMaxAhead,
	}
	intakeService := appointments.NewService(appointmentRepo, practitionerRepo, window, logger.Component("intake"))

	// In-process reconcile sweep. The standalone binary covers deployments
	// that scale the API horizontally.
	sweeper := reconcileworker.NewWorker(appointmentRepo, reconciler, logger.Component("reconcile")).
		WithInterval(cfg.ReconcileInterval).
		WithBatchSize(cfg.ReconcileBatchSize).
		WithMetrics(paymentMetrics)
	go sweeper.Run(ctx)

	routerCfg := &router.Config{
		Logger:               logger,
		AppointmentsHandler:  appointments.NewHandler(intakeService, logger),
		PractitionersHandler: practitioners.NewHandler(practitionerRepo, logger),
		CheckoutHandler:      payments.NewCheckoutHandler(issuer, logger),
		StripeWebhook:        webhookHandler,
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthJWTSecret:        cfg.AuthJWTSecret,
		AdminJWTSecret:       cfg.AdminJWTSecret,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
