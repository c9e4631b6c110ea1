package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"downloader/infrastructure/configuration"
	"downloader/infrastructure/logger"
	"downloader/infrastructure/queue"
	"downloader/infrastructure/scheduler"
	httpHandler "downloader/interfaces/http"
	"downloader/server"
	"downloader/usecase"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var withScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the in-process workers and the sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), withScheduler)
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "scheduler", true, "run the cron sweeps in this process")
	return cmd
}

func serve(parent context.Context, withScheduler bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	cfg := configuration.C
	g, gctx := errgroup.WithContext(ctx)

	// The memory driver runs the lifecycle workers here; asynq hands tasks to `worker`.
	var memQueue *queue.MemoryQueue
	switch cfg.Queue.Driver {
	case "asynq":
		if cfg.RedisClient.Addr() == "" {
			return errors.New("QUEUE_DRIVER=asynq requires REDIS_HOST")
		}
		client := asynq.NewClient(queue.RedisOpt(cfg.RedisClient.Addr(), cfg.RedisClient.Username, cfg.RedisClient.Password, cfg.RedisClient.DB))
		q := queue.NewAsynqQueue(client)
		defer q.Close()
		a.deps.Queue = q
	default:
		memQueue = queue.NewMemoryQueue(cfg.Queue.Capacity, a.metrics)
		a.deps.Queue = memQueue
	}

	lifecycle := usecase.NewLifecycleUsecase(a.deps)
	sweeper := usecase.NewSweeperUsecase(a.deps, cfg.Sweeper.FailedGrace(), cfg.Downloader.ExtractionTimeout())

	if memQueue != nil {
		if _, err := sweeper.RecoverOrphans(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Startup recovery failed")
		}
		memQueue.Start(gctx, cfg.Queue.Workers, lifecycle.Process)
	}

	if withScheduler {
		sched := scheduler.New(cfg.Sweeper.Timeout())
		if err := registerSweeps(sched, sweeper, cfg.Sweeper); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	downloadUsecase := usecase.NewDownloadUsecase(a.deps, cfg.Downloader.Retention(), cfg.Downloader.ListLimit)
	authUsecase := usecase.NewAuthUsecase(a.deps, cfg.App.SecretKey, time.Duration(cfg.App.TokenTTLHours)*time.Hour)
	tokenTTL := time.Duration(cfg.App.TokenTTLHours) * time.Hour

	router := server.InitiateRouter(
		httpHandler.NewDownloadHandler(downloadUsecase),
		httpHandler.NewAuthHandler(authUsecase, cfg.App.SecretKey, tokenTTL, cfg.App.TLSEnabled),
		httpHandler.NewUserHandler(authUsecase),
		a.hub,
		a.users,
		server.RouterConfig{
			SecretKey:      cfg.App.SecretKey,
			AllowedOrigins: cfg.App.AllowedOrigins,
			Metrics:        a.metrics.Handler(),
		},
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.GetLogger().WithFields(map[string]interface{}{"port": cfg.App.Port, "tls": cfg.App.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		var err error
		if cfg.App.TLSEnabled && cfg.App.TLSCertFile != "" && cfg.App.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.App.TLSCertFile, cfg.App.TLSKeyFile)
		} else {
			if cfg.App.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.GetLogger().Info("Application shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if memQueue != nil {
		memQueue.Wait()
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
	}
	return err
}

// registerSweeps schedules the recurring maintenance passes.
func registerSweeps(sched *scheduler.Scheduler, sweeper usecase.ISweeperUsecase, cfg configuration.Sweeper) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (usecase.SweepReport, error)
	}{
		{usecase.JobExpiry, cfg.ExpiryCron, sweeper.ExpirePass},
		{usecase.JobFailedCleanup, cfg.FailedCron, sweeper.CleanupFailed},
		{usecase.JobTokenRefresh, cfg.TokenRefreshCron, sweeper.RefreshTokens},
	}
	for _, job := range jobs {
		run := job.run
		if err := sched.Add(job.name, job.spec, func(ctx context.Context) error {
			_, err := run(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}
