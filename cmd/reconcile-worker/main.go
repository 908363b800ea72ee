package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/carebook/carebook-platform/internal/appointments"
	"github.com/carebook/carebook-platform/internal/config"
	"github.com/carebook/carebook-platform/internal/notify"
	"github.com/carebook/carebook-platform/internal/payments"
	reconcileworker "github.com/carebook/carebook-platform/internal/worker/reconcile"
	"github.com/carebook/carebook-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("reconcile worker requires DATABASE_URL")
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

	repo := appointments.NewRepository(pool)

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

	reconciler := payments.NewReconciler(repo, fanout, logger.Component("reconciler"))

	worker := reconcileworker.NewWorker(repo, reconciler, logger.Component("reconcile")).
		WithInterval(cfg.ReconcileInterval).
		WithBatchSize(cfg.ReconcileBatchSize)

	go worker.Run(ctx)
	logger.Info("reconcile worker started",
		"interval", cfg.ReconcileInterval,
		"batch_size", cfg.ReconcileBatchSize,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("reconcile worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}
