package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pogodabot/weatherbot/internal/cache"
	"github.com/pogodabot/weatherbot/internal/config"
	"github.com/pogodabot/weatherbot/internal/fetch"
	"github.com/pogodabot/weatherbot/internal/httpapi"
	"github.com/pogodabot/weatherbot/internal/notify"
	"github.com/pogodabot/weatherbot/internal/observability"
	"github.com/pogodabot/weatherbot/internal/registry"
	"github.com/pogodabot/weatherbot/internal/scheduler"
	"github.com/pogodabot/weatherbot/internal/storage"
	"github.com/pogodabot/weatherbot/internal/weather"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var responseCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		responseCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		dc, err := cache.NewDiskCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			logger.Fatal("disk cache", zap.Error(err))
		}
		responseCache = dc
		logger.Info("cache backend: disk", zap.String("dir", cfg.CacheDir))
	}

	fetcher := fetch.New(cfg.FetchTimeout, cfg.RetryAttempts, cfg.RetryBaseDelay, logger)
	weatherClient := weather.New(fetcher, responseCache, cfg.CacheTTL,
		cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.GeoBaseURL, cfg.Lang, logger)

	store := storage.NewStore(cfg.StoragePath, logger)
	reg := registry.New(store, logger)
	reg.LoadFromStore()

	var sender notify.Sender
	if cfg.WebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.WebhookURL, cfg.RequestTimeout)
		logger.Info("notification delivery: webhook", zap.String("url", cfg.WebhookURL))
	} else {
		sender = notify.NewLogSender(logger)
		logger.Info("notification delivery: log only")
	}

	sched := scheduler.New(reg, weatherClient, sender, cfg.CheckInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httpapi.NewHandler(weatherClient, reg, logger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		RateLimiter:    limiter,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * cfg.RequestTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
