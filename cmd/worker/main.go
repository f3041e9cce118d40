// Package main runs the background worker: the campaign dispatcher on a cron schedule and the
// queue consumer that sends campaign emails.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/commandcentered/backend/config"
	"github.com/commandcentered/backend/internal/campaigns"
	"github.com/commandcentered/backend/internal/worker"
	"github.com/commandcentered/backend/pkg/database"
	"github.com/commandcentered/backend/pkg/mailer"
	"github.com/commandcentered/backend/pkg/queue"
	"github.com/commandcentered/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	smtp := mailer.NewSMTP(mailer.Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		User:     cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPass,
		From:     cfg.Email.FromAddress,
		FromName: cfg.Email.FromName,
	}, logger)
	if !smtp.Configured() {
		logger.Warn("SMTP_HOST is not set, campaign emails will be retried and dead-lettered")
	}

	campaignRepo := campaigns.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	dispatcher := campaigns.NewDispatcher(campaignRepo, jobQueue, logger)

	processor := worker.NewProcessor(jobQueue, logger)
	processor.Handle(queue.JobTypeCampaignEmail, campaigns.NewSender(campaignRepo, smtp, logger))

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(cfg.Campaign.DispatchCron, dispatcher.Run); err != nil {
		logger.Fatal("campaign dispatch schedule", zap.String("spec", cfg.Campaign.DispatchCron), zap.Error(err))
	}
	scheduler.Start()

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started", zap.String("dispatch_cron", cfg.Campaign.DispatchCron))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopped := scheduler.Stop()
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("queue consumer did not stop in time")
	}
	<-stopped.Done()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
