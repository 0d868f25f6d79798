// Package main provides the headless refresh worker entry point, for
// deployments that split the API from the refresh fleet.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/cache"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/config"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/ledger"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/logging"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/scheduler"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.Info("Refresh worker starting")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redisCache, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	store := storage.NewCacheStore(redisCache, cfg.Cache.TTL)
	directory := storage.NewAccountDirectory(postgres)
	mirrorClient := ledger.NewClient(&cfg.Mirror)

	manager := cache.NewManager(&cache.ManagerConfig{
		Ledger:     mirrorClient,
		Store:      store,
		FetchLimit: cfg.Cache.FetchLimit,
	})

	sched, err := scheduler.New(&scheduler.Config{
		Refresher:  manager,
		Directory:  directory,
		Interval:   cfg.Scheduler.Interval,
		BatchSize:  cfg.Scheduler.BatchSize,
		BatchDelay: cfg.Scheduler.BatchDelay,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scheduler")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer shutdownCancel()

	sched.Stop(shutdownCtx)
	logger.Info("Refresh worker stopped")
}
