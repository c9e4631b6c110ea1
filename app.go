package main

import (
	"context"
	"fmt"
	"time"

	"downloader/domain/repository"
	"downloader/infrastructure/cache"
	"downloader/infrastructure/clients/extraction"
	"downloader/infrastructure/clients/google"
	"downloader/infrastructure/configuration"
	"downloader/infrastructure/events"
	"downloader/infrastructure/logger"
	"downloader/infrastructure/metrics"
	"downloader/infrastructure/persistence"
	"downloader/infrastructure/pubsub"
	"downloader/infrastructure/realtime"
	"downloader/infrastructure/servicebus"
	"downloader/infrastructure/storage"
	"downloader/usecase"

	"github.com/redis/go-redis/v9"
)

// app holds the infrastructure shared by every command.
type app struct {
	downloads repository.IDownload
	users     repository.IUser
	hub       *realtime.Hub
	metrics   *metrics.DownloadMetrics
	deps      usecase.Deps

	closers []func(ctx context.Context)
}

// newApp connects the configured store, cache and message buses. Optional
// infrastructure that is not configured or not reachable is skipped with a warning.
func newApp(ctx context.Context) (*app, error) {
	cfg := configuration.C
	a := &app{
		hub:     realtime.NewDownloadHub(),
		metrics: metrics.New("downloader"),
	}

	if err := a.initStore(ctx, cfg.Database); err != nil {
		a.close(ctx)
		return nil, err
	}

	store := storage.NewOsFileStore(cfg.Downloader.DownloadPath)
	if err := store.EnsureDir(); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("prepare download directory: %w", err)
	}

	fanout := events.NewFanout(a.hub)
	a.initMessaging(ctx, cfg, fanout)

	a.deps = usecase.Deps{
		Downloads: a.downloads,
		Users:     a.users,
		Extractor: extraction.NewClient(cfg.Downloader.ExtractionURL, cfg.Downloader.ExtractionTimeout()),
		Store:     store,
		Cache:     cache.NewDownloadCache(a.initRedis(ctx, cfg.RedisClient), time.Duration(cfg.RedisClient.TTLSeconds)*time.Second),
		Events:    fanout,
		Metrics:   a.metrics,
		Google:    google.NewClient(configuration.GetGoogleConfig()),
	}
	return a, nil
}

func (a *app) initStore(ctx context.Context, cfg configuration.Database) error {
	if cfg.Vendor == "mongo" {
		client, err := persistence.NewMongoDb(cfg.Mongo)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(ctx context.Context) { _ = client.Disconnect(ctx) })
		if err := client.Ping(ctx, nil); err != nil {
			return fmt.Errorf("ping mongo: %w", err)
		}
		db := client.Database(cfg.Mongo.Name)
		if err := persistence.EnsureMongoIndexes(ctx, db); err != nil {
			return err
		}
		a.downloads = persistence.NewDownloadRepository(db)
		a.users = persistence.NewUserRepository(db)
		logger.GetLogger().WithField("database", cfg.Mongo.Name).Info("MongoDB connected successfully")
		return nil
	}

	dialect, ok := persistence.DialectFor(cfg.Vendor)
	if !ok {
		return fmt.Errorf("unsupported DB_VENDOR %q", cfg.Vendor)
	}
	open, dbCfg := persistence.NewPostgreSQLDB, cfg.Psql
	if dialect.Name == persistence.MSSQL.Name {
		open, dbCfg = persistence.NewMSSQLDB, cfg.Mssql
	}
	db, err := open(dbCfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Vendor, err)
	}
	a.closers = append(a.closers, func(context.Context) { _ = db.Close() })
	if err := persistence.EnsureSchema(db, dialect); err != nil {
		return err
	}
	a.downloads = persistence.NewDownloadRepositorySQL(db, dialect)
	a.users = persistence.NewUserRepositorySQL(db, dialect)
	logger.GetLogger().WithField("vendor", cfg.Vendor).Info("Database connected.")
	return nil
}

func (a *app) initRedis(ctx context.Context, cfg configuration.RedisClient) *redis.Client {
	client, err := cache.NewCache(ctx, cfg.Addr(), cfg.Username, cfg.Password, cfg.DB)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without status cache")
		return nil
	}
	if client != nil {
		a.closers = append(a.closers, func(context.Context) { _ = client.Close() })
		logger.GetLogger().Info("Redis client initialized successfully.")
	}
	return client
}

func (a *app) initMessaging(ctx context.Context, cfg configuration.Config, fanout *events.Fanout) {
	pubSubClient, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
	} else if pubSubClient != nil {
		publisher := pubsub.NewDownloadEventPublisher(pubSubClient, cfg.Pubsub.Topic)
		fanout.Add(publisher)
		a.closers = append(a.closers, func(context.Context) {
			publisher.Stop()
			_ = pubSubClient.Close()
		})
	}

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus features")
		return
	}
	if azServiceBusClient == nil {
		return
	}
	sender, err := servicebus.NewDownloadEventSender(azServiceBusClient, cfg.ServiceBus.Queue)
	if err != nil {
		return
	}
	fanout.Add(sender)
	a.closers = append(a.closers, func(ctx context.Context) {
		sender.Close(ctx)
		_ = azServiceBusClient.Close(ctx)
	})
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}
