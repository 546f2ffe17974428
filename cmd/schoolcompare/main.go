package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"schoolcompare/internal/adapters"
	"schoolcompare/internal/backend"
	"schoolcompare/internal/cache"
	"schoolcompare/internal/cli"
	"schoolcompare/internal/comparison"
	apphttp "schoolcompare/internal/http"
	"schoolcompare/internal/log"
	"schoolcompare/internal/services"
	"schoolcompare/internal/tax"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(bootCtx, backendCfg)
	bootCancel()
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	estimator, err := tax.NewEmbeddedEstimator()
	if err != nil {
		logger.Error("Embedded tax table is invalid", log.FieldError, err)
		os.Exit(1)
	}
	var watcher *tax.Watcher
	if cfg.TaxTablePath != "" {
		watcher, err = tax.NewWatcher(estimator, cfg.TaxTablePath, logger)
		if err == nil {
			err = watcher.Reload()
		}
		if err != nil {
			logger.Error("Failed to load tax table", log.FieldError, err, "path", cfg.TaxTablePath)
			os.Exit(1)
		}
	}

	cacheManager := cache.NewManager(logger)
	readCache := adapters.NewCachedProvider(result.Backend, 256, cfg.ProviderCacheTTL).WithTimeout(5 * time.Second)
	readCache.Register(cacheManager)

	registry := comparison.NewRegistry(result.KV, cfg.SessionCacheSize, cfg.SessionTTL, logger)
	cacheManager.Register("sessions", registry.Cache())
	cacheManager.StartCleanup(time.Minute)

	comparisons := services.NewComparisonService(registry, result.Events, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Provider:    readCache,
		Popularity:  result.Backend,
		Comparisons: comparisons,
		Estimator:   estimator,
		Ready:       result.Ready,
		CacheStats: func() map[string]cache.Stats {
			stats := readCache.Stats()
			stats["sessions"] = registry.Cache().Stats()
			return stats
		},
		Logger:            logger,
		SessionCookieName: cfg.SessionCookieName,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		if watcher != nil {
			watcher.Stop()
		}
		err := srv.Shutdown(ctx)
		cacheManager.Stop()
		if result.Cleanup != nil {
			err = errors.Join(err, result.Cleanup())
		}
		return err
	})

	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Tax table hot reload disabled", log.FieldError, err, "path", cfg.TaxTablePath)
		}
	}

	logger.Info("Starting schoolcompare server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", cfg.EventsEnabled(),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
