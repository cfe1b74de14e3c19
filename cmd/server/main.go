// Package main provides the API server entry point for the pop scanner
// service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pop-scanner/internal/adapter"
	"github.com/pop-scanner/internal/api"
	"github.com/pop-scanner/internal/config"
	"github.com/pop-scanner/internal/logging"
	"github.com/pop-scanner/internal/scraper"
	"github.com/pop-scanner/internal/service"
	"github.com/pop-scanner/internal/storage"
	"github.com/pop-scanner/internal/worker"
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
	logger.Info("Pop scanner starting")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() { _ = redis.Close() }()

	logger.Info("Database connections established")

	pageCache := storage.NewPageCache(redis, cfg.Scraper.PageCacheTTL)
	fetcher := adapter.NewFirecrawlClient(&cfg.Firecrawl, pageCache)
	if !fetcher.Configured() {
		logger.Warn("No Firecrawl API key configured, runs will use synthetic pricing data")
	}

	metrics := scraper.NewMetrics()
	controller := scraper.NewController(fetcher, scraper.NewPacer(cfg.Scraper.FetchDelay), metrics)

	priceHistoryRepo := storage.NewPriceHistoryRepository(postgres)
	jobRepo := storage.NewScrapeJobRepository(postgres)
	popRepo := storage.NewFunkoPopRepository(postgres)

	scrapeService := service.NewScrapeService(
		controller,
		priceHistoryRepo,
		jobRepo,
		popRepo,
		cfg.Scraper.RescrapeInterval,
	)

	var rescrapeWorker *worker.RescrapeWorker
	if cfg.Scraper.WorkerPollInterval > 0 {
		rescrapeWorker, err = worker.NewRescrapeWorker(&worker.RescrapeWorkerConfig{
			Runner:       scrapeService,
			Jobs:         jobRepo,
			Catalog:      popRepo,
			PollInterval: cfg.Scraper.WorkerPollInterval,
			BatchSize:    cfg.Scraper.WorkerBatchSize,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to create rescrape worker")
		}
		if err := rescrapeWorker.Start(context.Background()); err != nil {
			logger.WithError(err).Fatal("Failed to start rescrape worker")
		}
	} else {
		logger.Info("Rescrape worker disabled")
	}

	server := api.NewServer(&api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    120 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MetricsRegistry: metrics.Registry,
	}, scrapeService, jobRepo)

	go func() {
		logger.WithField("addr", cfg.Server.Host+":"+cfg.Server.Port).Info("API server listening")
		if err := server.Start(); err != nil {
			logger.WithError(err).Error("API server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if rescrapeWorker != nil {
		if err := rescrapeWorker.Stop(ctx); err != nil {
			logger.WithError(err).Error("Rescrape worker stop failed")
		}
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}
