// Package main initializes and runs the skuld feature flag service.
//
// It acts as the composition root: it loads configuration, wires the
// Postgres store, the cache backend, the change notifier, and the registry,
// then serves the REST API and the observability endpoints until a shutdown
// signal arrives.
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
	"time"

	"github.com/skuld-io/skuld/internal/cache"
	"github.com/skuld-io/skuld/internal/config"
	"github.com/skuld-io/skuld/internal/controlapi"
	"github.com/skuld-io/skuld/internal/database"
	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/notifier"
	"github.com/skuld-io/skuld/internal/observability"
	"github.com/skuld-io/skuld/internal/registry"
	"github.com/skuld-io/skuld/internal/store"
)

// poolMonitorInterval drives how often connection pool stats are published.
const poolMonitorInterval = 15 * time.Second

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	// Root context, cancelled on SIGINT/SIGTERM. Background monitors hang
	// off it so they stop with the service.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithContext(ctx, log)

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	go database.RunPoolMonitor(ctx, pool, poolMonitorInterval)

	flagCache, cacheChecker, err := buildCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer flagCache.Close()

	change, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------
	repo := store.NewPostgresStore(pool)
	reg := registry.New(repo, flagCache, change, flag.NewEngine())
	api := controlapi.NewAPI(reg)

	// -------------------------------------------------------------------------
	// 4. Observability Server (dedicated admin port)
	// -------------------------------------------------------------------------
	checkers := []observability.Checker{database.NewHealthChecker(pool)}
	if cacheChecker != nil {
		checkers = append(checkers, cacheChecker)
	}

	obsServer := observability.NewServer(log, &cfg.Observability, checkers...)
	obsServer.Start()

	// -------------------------------------------------------------------------
	// 5. API Server
	// -------------------------------------------------------------------------
	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting API server",
			slog.String("addr", server.Addr),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		var serveErr error
		if cfg.Server.TLSEnabled {
			serveErr = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("api server failed: %w", serveErr)
		}
	}()

	// -------------------------------------------------------------------------
	// 6. Graceful Shutdown
	// -------------------------------------------------------------------------
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", slog.String("error", err.Error()))
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("service exited successfully")
	return nil
}

// buildCache constructs the configured cache backend and starts its metric
// sidecars. The returned checker is nil when the backend has no external
// dependency to probe.
func buildCache(ctx context.Context, cfg *config.Config) (cache.Service, observability.Checker, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		mem, err := cache.NewMemoryCache(cfg.Cache.MemoryCapacity, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build memory cache: %w", err)
		}
		go mem.RunMetricsCollector(ctx, poolMonitorInterval)
		return mem, nil, nil

	case config.CacheBackendRedis:
		client, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		go cache.RunPoolMonitor(ctx, client, poolMonitorInterval)
		return cache.NewRedisCache(client, &cfg.Cache), cache.NewHealthChecker(client), nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// buildNotifier returns the Slack notifier when a webhook is configured, a
// no-op otherwise.
func buildNotifier(cfg *config.Config, log *slog.Logger) (notifier.Notifier, error) {
	if !cfg.Notifier.IsConfigured() {
		log.Info("no webhook configured, change notifications disabled")
		return notifier.Noop{}, nil
	}

	slack, err := notifier.NewSlack(&cfg.Notifier)
	if err != nil {
		return nil, fmt.Errorf("failed to build slack notifier: %w", err)
	}
	return slack, nil
}
