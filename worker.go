package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"downloader/infrastructure/configuration"
	"downloader/infrastructure/logger"
	"downloader/infrastructure/queue"
	"downloader/usecase"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume download tasks from Redis (QUEUE_DRIVER=asynq)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return work(cmd.Context())
		},
	}
}

func work(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := configuration.C
	if cfg.RedisClient.Addr() == "" {
		return errors.New("worker requires REDIS_HOST")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	opt := queue.RedisOpt(cfg.RedisClient.Addr(), cfg.RedisClient.Username, cfg.RedisClient.Password, cfg.RedisClient.DB)
	q := queue.NewAsynqQueue(asynq.NewClient(opt))
	defer q.Close()
	a.deps.Queue = q
	lifecycle := usecase.NewLifecycleUsecase(a.deps)

	// every worker recovers at startup; the stale cutoff spares work held by live siblings
	if _, err := usecase.NewSweeperUsecase(a.deps, cfg.Sweeper.FailedGrace(), cfg.Downloader.ExtractionTimeout()).RecoverOrphans(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Startup recovery failed")
	}

	srv := queue.NewServer(opt, cfg.Queue.Workers)
	if err := srv.Start(queue.Mux(lifecycle.Process)); err != nil {
		return err
	}
	logger.GetLogger().WithField("concurrency", cfg.Queue.Workers).Info("Download worker started")

	<-ctx.Done()
	srv.Shutdown()
	logger.GetLogger().Info("Download worker stopped")
	return nil
}
