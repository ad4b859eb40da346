// Command server runs the tasknest API: hierarchical multilingual tasks with
// a Redis-backed read cache and pub/sub change propagation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/tasknest/tasknest/internal/api"
	"github.com/tasknest/tasknest/internal/cache"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/events"
	"github.com/tasknest/tasknest/internal/platform/logger"
	"github.com/tasknest/tasknest/internal/platform/postgres"
	"github.com/tasknest/tasknest/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := postgres.RunMigrations(db, appLogger); err != nil {
		return err
	}

	cacheClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	defer func() { _ = cacheClient.Close() }()

	eventsClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Events.Addr,
		Password: cfg.Events.Password,
		DB:       cfg.Events.DB,
	})
	defer func() { _ = eventsClient.Close() }()

	taskStore := postgres.NewPostgresTaskStore(db, appLogger)
	taskCache := cache.NewRedisTaskCache(cacheClient, cache.TTLs{
		List:   cfg.Cache.ListTTL,
		Detail: cfg.Cache.DetailTTL,
		Stats:  cfg.Cache.StatsTTL,
	}, appLogger)
	broadcaster := events.NewRedisBroadcaster(eventsClient, cfg.Events.ChannelPrefix, appLogger)

	taskService, err := service.NewTaskService(taskStore, taskCache, broadcaster, cfg.Locale.Supported, appLogger)
	if err != nil {
		return fmt.Errorf("failed to construct task service: %w", err)
	}

	handler := api.NewTaskHandler(taskService, appLogger)
	router := setupRouter(cfg, handler, taskCache, appLogger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("server listening", slog.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		appLogger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	appLogger.Info("server stopped")
	return nil
}
