// Package main provides the API server entry point for the transaction
// cache service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/api"
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
	logger.Info("Transaction cache service starting")

	// Backing stores
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

	logger.Info("Database connections established")

	// Core wiring
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

	// HTTP server
	server := api.NewServer(&api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxAgeMinutes:   cfg.Cache.MaxAgeMinutes,
		RateLimitRPS:    20,
	}, manager, sched)

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(map[string]interface{}{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		}).Info("HTTP server listening")
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
		}
	}

	// Graceful shutdown: stop taking requests, then stop the scheduler
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}

	sched.Stop(shutdownCtx)
	logger.Info("Transaction cache service stopped")
}
