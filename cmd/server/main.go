package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/ai"
	"github.com/priyamehta/screenscout/internal/analytics"
	"github.com/priyamehta/screenscout/internal/api"
	"github.com/priyamehta/screenscout/internal/catalog"
	"github.com/priyamehta/screenscout/internal/config"
	"github.com/priyamehta/screenscout/internal/engine"
	"github.com/priyamehta/screenscout/internal/events"
	"github.com/priyamehta/screenscout/internal/intent"
	"github.com/priyamehta/screenscout/internal/observability"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting search service",
		zap.String("service", cfg.Observability.ServiceName),
	)

	tracerShutdown, err := observability.InitTracer(cfg.Observability.ServiceName)
	if err != nil {
		logger.Warn("tracing initialization failed, continuing without tracing", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The response cache is optional: a redis outage means slower
	// searches, not a dead service.
	var respCache *catalog.ResponseCache
	if len(cfg.Redis.Addresses) > 0 {
		respCache, err = catalog.NewResponseCache(cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis initialization failed, catalog responses will not be cached", zap.Error(err))
		} else {
			defer respCache.Close()
			logger.Info("response cache initialized")
		}
	}

	gateway := catalog.NewClient(cfg.Catalog, respCache, logger)
	logger.Info("catalog client initialized", zap.String("base_url", cfg.Catalog.BaseURL))

	var inferencer ai.Inferencer
	if cfg.AI.Enabled {
		inferencer = ai.NewClient(cfg.AI)
		logger.Info("ai inference client initialized", zap.String("model", cfg.AI.Model))
	}
	analyzer := intent.NewAnalyzer(inferencer, logger)

	var chClient *analytics.Client
	if cfg.ClickHouse.Enabled {
		chClient, err = analytics.NewClient(cfg.ClickHouse, logger)
		if err != nil {
			logger.Warn("clickhouse initialization failed, analytics will be unavailable", zap.Error(err))
			chClient = nil
		} else {
			defer chClient.Close()
			if err := chClient.EnsureTables(ctx); err != nil {
				logger.Warn("clickhouse table creation failed", zap.Error(err))
			}
			logger.Info("clickhouse client initialized")
		}
	}

	var producer *events.Producer
	if cfg.Kafka.Enabled {
		producer = events.NewProducer(cfg.Kafka, logger)
		defer producer.Close()
	}

	var analyticsWriter observability.AnalyticsWriter
	if chClient != nil {
		analyticsWriter = chClient
	}
	slowDetector := observability.NewSlowSearchDetector(
		cfg.Search.SlowSearch.WarningThreshold,
		cfg.Search.SlowSearch.CriticalThreshold,
		logger,
		analyticsWriter,
	)

	eng := engine.New(gateway, analyzer, cfg.Search, logger)

	handler := api.NewHandler(eng, producer, slowDetector, chClient, logger)

	healthHandler := api.NewHealthHandler(logger)
	healthHandler.Register("catalog", gateway)
	if respCache != nil {
		healthHandler.RegisterSoft("redis", respCache)
	}
	if chClient != nil {
		healthHandler.RegisterSoft("clickhouse", chClient)
	}
	if producer != nil {
		healthHandler.RegisterSoft("kafka", producer)
	}

	router := api.NewRouter(handler, healthHandler, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	logger.Info("starting graceful shutdown", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	cancel()

	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}
