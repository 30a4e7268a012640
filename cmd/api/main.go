package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/sales-analyst/internal/api"
	"github.com/dvloznov/sales-analyst/internal/api/handlers"
	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/export"
	"github.com/dvloznov/sales-analyst/internal/jobs"
	"github.com/dvloznov/sales-analyst/internal/jobs/inmemory"
	"github.com/dvloznov/sales-analyst/internal/logger"
	"github.com/dvloznov/sales-analyst/internal/metrics"
	"github.com/dvloznov/sales-analyst/internal/pipeline"
	"github.com/dvloznov/sales-analyst/internal/source"
	"github.com/dvloznov/sales-analyst/internal/summary"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", os.Getenv("SALES_CONFIG"), "Path to YAML config file (or set SALES_CONFIG env)")
		port       = flag.String("port", "", "HTTP server port (overrides config)")
	)
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Initialize logger
	log := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Format)
	ctx := logger.WithContext(context.Background(), log)

	// Pipeline dependencies
	recorder := metrics.NewRecorder()
	opts := pipeline.Options{
		Analysis: cfg.Analysis,
		Loader:   source.NewResolver(cfg),
		Observer: recorder,
	}

	if cfg.Summary.Enabled {
		summarizer, err := summary.NewGeminiSummarizer(ctx, cfg.Summary)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create summarizer")
		}
		opts.Summarizer = summarizer
		log.Info().Str("model", cfg.Summary.Model).Msg("Executive summary enabled")
	}

	exporters, closeExporters, err := export.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure report export")
	}
	defer closeExporters()

	var exporter jobs.Exporter
	if len(exporters) > 0 {
		exporter = exporters
	} else {
		log.Warn().Msg("No export destination configured - publish requests will only add a notice")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.BufferSize, cfg.Jobs.Workers, cfg.Jobs.MaxRetries, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewAnalyzeHandler(opts, exporter)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Initialize handlers
	router := api.NewRouter(api.Handlers{
		Analysis: handlers.NewAnalysisHandler(opts, cfg.Server.MaxUploadSize, log),
		Jobs:     handlers.NewJobsHandler(jobStore, jobQueue, log),
		Metrics:  handlers.NewMetricsHandler(recorder),
	}, cfg.Server.APIKey, log)

	if cfg.Server.APIKey == "" {
		log.Warn().Msg("No API key configured - /api/ endpoints are open")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
