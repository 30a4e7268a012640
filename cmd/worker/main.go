package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/dvloznov/sales-analyst/internal/config"
	"github.com/dvloznov/sales-analyst/internal/domain"
	"github.com/dvloznov/sales-analyst/internal/export"
	"github.com/dvloznov/sales-analyst/internal/jobs"
	"github.com/dvloznov/sales-analyst/internal/jobs/inmemory"
	"github.com/dvloznov/sales-analyst/internal/logger"
	"github.com/dvloznov/sales-analyst/internal/metrics"
	"github.com/dvloznov/sales-analyst/internal/pipeline"
	"github.com/dvloznov/sales-analyst/internal/source"
)

// The worker analyzes a batch of sources concurrently through the job
// queue and exits once every job has finished.
func main() {
	var (
		configPath  = flag.String("config", os.Getenv("SALES_CONFIG"), "Path to YAML config file (or set SALES_CONFIG env)")
		sourcesPath = flag.String("sources", "", "File listing one source per line ('-' for stdin)")
		publish     = flag.Bool("publish", false, "Export every report to the configured destinations")
		workers     = flag.Int("workers", 0, "Number of workers (overrides config)")
	)
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *workers > 0 {
		cfg.Jobs.Workers = *workers
	}

	// Initialize logger
	log := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Format)

	sources := flag.Args()
	if *sourcesPath != "" {
		listed, err := loadSourceList(*sourcesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read source list")
		}
		sources = append(sources, listed...)
	}
	if len(sources) == 0 {
		log.Fatal().Msg("Usage: worker [-sources FILE] [source ...]")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Interrupted, stopping workers...")
		cancel()
	}()

	var exporter jobs.Exporter
	if *publish {
		exporters, closeExporters, err := export.FromConfig(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure report export")
		}
		defer closeExporters()
		if len(exporters) == 0 {
			log.Fatal().Msg("-publish given but no export destination is configured")
		}
		exporter = exporters
	}

	recorder := metrics.NewRecorder()
	opts := pipeline.Options{
		Analysis: cfg.Analysis,
		Loader:   source.NewResolver(cfg),
		Observer: recorder,
	}

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	bufferSize := cfg.Jobs.BufferSize
	if bufferSize < len(sources) {
		bufferSize = len(sources)
	}
	jobQueue := inmemory.NewQueue(bufferSize, cfg.Jobs.Workers, cfg.Jobs.MaxRetries, jobStore)

	if err := jobQueue.Start(ctx, jobs.NewAnalyzeHandler(opts, exporter)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Int("sources", len(sources)).Int("workers", cfg.Jobs.Workers).Msg("Worker started")

	var jobIDs []string
	for _, src := range sources {
		if _, err := source.Detect(src); err != nil {
			log.Error().Err(err).Str("source", source.Redact(src)).Msg("Skipping source")
			continue
		}
		job := &jobs.AnalyzeJob{Source: src, Label: source.Redact(src), Publish: *publish}
		if err := jobQueue.PublishAnalyze(ctx, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to enqueue job")
		}
		jobIDs = append(jobIDs, job.JobID)
	}

	finished, err := waitForJobs(ctx, jobStore, jobIDs, 100*time.Millisecond)
	if err != nil {
		log.Error().Err(err).Msg("Stopped before every job finished")
	}

	// Stop the queue and wait for in-flight jobs
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	failed := printResults(os.Stdout, finished)
	for _, s := range recorder.Snapshot() {
		log.Debug().Str("step", s.Step).Int64("count", s.Count).Float64("p95_ms", s.P95Ms).Msg("Step latency")
	}

	if failed > 0 || err != nil || len(jobIDs) < len(sources) {
		os.Exit(1)
	}
}

// loadSourceList reads sources from path, or stdin when path is "-".
func loadSourceList(path string) ([]string, error) {
	if path == "-" {
		return readSources(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadSourceList: %w", err)
	}
	defer f.Close()
	return readSources(f)
}

// readSources returns one source per non-blank line. Lines starting with
// '#' are comments.
func readSources(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("readSources: %w", err)
	}
	return out, nil
}

// waitForJobs polls store until every job is completed or failed, or ctx
// ends. It returns the jobs in the order of ids.
func waitForJobs(ctx context.Context, store jobs.JobStore, ids []string, interval time.Duration) ([]*jobs.AnalyzeJob, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		finished := make([]*jobs.AnalyzeJob, 0, len(ids))
		for _, id := range ids {
			job, err := store.GetJob(ctx, id)
			if err != nil {
				return finished, fmt.Errorf("waitForJobs: %w", err)
			}
			if job.Status != jobs.JobStatusCompleted && job.Status != jobs.JobStatusFailed {
				break
			}
			finished = append(finished, job)
		}
		if len(finished) == len(ids) {
			return finished, nil
		}

		select {
		case <-ctx.Done():
			return finished, ctx.Err()
		case <-ticker.C:
		}
	}
}

// printResults writes one status line per job and returns the number of
// failed jobs.
func printResults(w io.Writer, finished []*jobs.AnalyzeJob) int {
	ok := color.New(color.FgGreen, color.Bold).Sprint("✓")
	bad := color.New(color.FgRed, color.Bold).Sprint("✗")

	failed := 0
	for _, job := range finished {
		if job.Status == jobs.JobStatusFailed {
			failed++
			kind := job.ErrorKind
			if kind == "" {
				kind = "error"
			}
			fmt.Fprintf(w, "%s %s: %s: %s\n", bad, job.Label, kind, job.Error)
			continue
		}
		line := fmt.Sprintf("%s %s", ok, job.Label)
		if job.Report != nil {
			line = fmt.Sprintf("%s %s: %d orders, %d rules, run %s",
				ok, job.Label, job.Report.KPIs.OrderCount, len(job.Report.Baskets.Rules.Rules), job.Report.RunID)
			for _, n := range job.Report.Notices {
				if n.Code == domain.NoticeExportFailed {
					line += " (export failed)"
				}
			}
		}
		fmt.Fprintln(w, line)
	}
	return failed
}
