package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ratefeed/internal/cache"
	"ratefeed/internal/config"
	"ratefeed/internal/exnode"
	"ratefeed/internal/fetcher"
	"ratefeed/internal/logger"
	"ratefeed/internal/metrics"
	"ratefeed/internal/normalizer"
	"ratefeed/internal/ratelimit"
	"ratefeed/internal/scheduler"
	"ratefeed/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	once := flag.Bool("once", false, "run a single refresh cycle and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.LogLevel)

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	// One shared limiter keeps concurrent exchanger fetches polite
	limiter := ratelimit.New(cfg.RequestsPerSecond, 1)

	retryPolicy := fetcher.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
		Jitter:     true,
	}

	// Create fetchers from configuration, skipping disabled exchangers
	var fetchers []fetcher.Fetcher
	for _, exc := range cfg.EnabledExchangers() {
		fetchers = append(fetchers, exnode.New(exnode.Config{
			ExchangerID: exc.ID,
			Name:        exc.Name,
			BaseURL:     cfg.BaseURL,
			URL:         exc.URL,
			Timeout:     cfg.FetchTimeout,
			Retry:       retryPolicy,
			Limiter:     limiter,
			Logger:      logg,
		}))
	}

	defaults := normalizer.DefaultsFromStrings(
		cfg.Defaults.Amount,
		cfg.Defaults.MinAmount,
		cfg.Defaults.MaxAmount,
		cfg.Defaults.Param,
	)
	norm := normalizer.New(defaults, logg)
	store := cache.New()

	sched := scheduler.New(scheduler.Config{
		Interval:     cfg.UpdateInterval,
		FetchTimeout: cfg.FetchTimeout,
		MaxSkipRatio: cfg.MaxSkipRatio,
		OutputPath:   cfg.OutputPath,
	}, fetchers, norm, store, m, logg)

	if *once {
		logg.Info("single-shot mode: running one refresh cycle")
		if err := sched.RunCycle(ctx); err != nil {
			logg.Errorf("cycle failed: %v", err)
			os.Exit(1)
		}
		return
	}

	// Start the feed server alongside the refresh loop
	var httpServer *http.Server
	if cfg.ServerEnabled {
		feedServer := server.New(sched, m, registry, cfg.OutputPath, cfg.FreshnessThreshold, logg)
		httpServer = &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      feedServer.Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}

		go func() {
			logg.Infof("feed server listening on %s", cfg.ServerAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Fatalf("feed server failed: %v", err)
			}
		}()
	}

	sched.Run(ctx)

	if httpServer != nil {
		logg.Info("shutting down feed server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logg.Errorf("feed server shutdown failed: %v", err)
		}
	}

	logg.Info("service stopped")
}
