package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/ncss-crawler/internal/api"
	"github.com/jobsift/ncss-crawler/internal/archive"
	"github.com/jobsift/ncss-crawler/internal/config"
	"github.com/jobsift/ncss-crawler/internal/crawler"
	"github.com/jobsift/ncss-crawler/internal/logging"
	"github.com/jobsift/ncss-crawler/internal/policy/admission"
	"github.com/jobsift/ncss-crawler/internal/storage/postgres"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl over all job categories",
		Long: `Sweeps every category and page of the listing API, persists unseen
records, then replays failed page requests once before reporting.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := cmd.Context()

	store, err := postgres.NewJobStore(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		Table:           cfg.DB.Table,
		MinConns:        int32(cfg.DB.MinConns),
		MaxConns:        int32(cfg.DB.MaxConns),
		MaxConnLifetime: cfg.ConnLifetime(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init job store: %w", err)
	}
	defer store.Close()

	gate := admission.New(admission.Config{
		MaxInFlight: cfg.Crawler.Concurrency,
		RPS:         cfg.Crawler.RPS,
	})
	jitterMin, jitterMax := cfg.JitterWindow()
	backoffMin, backoffMax := cfg.BackoffWindow()
	fetcher := crawler.NewFetcher(crawler.FetcherConfig{
		Attempts:       cfg.Crawler.Attempts,
		JitterMin:      jitterMin,
		JitterMax:      jitterMax,
		BackoffMin:     backoffMin,
		BackoffMax:     backoffMax,
		RequestTimeout: cfg.RequestTimeout(),
		SessionTimeout: cfg.SessionTimeout(),
		UserAgent:      cfg.Crawler.UserAgent,
	}, gate, logger)

	var sink crawler.PayloadSink
	if cfg.Archive.Dir != "" {
		fsSink, err := archive.NewSink(cfg.Archive.Dir, cfg.Archive.MaxPageBytes)
		if err != nil {
			return fmt.Errorf("init archive sink: %w", err)
		}
		sink = fsSink
	}

	if cfg.Metrics.Port > 0 {
		srv := api.NewServer(logger)
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			logger.Info("serving metrics", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	orch := crawler.NewOrchestrator(crawler.OrchestratorConfig{
		BaseURL:          cfg.Crawler.BaseURL,
		PagesPerCategory: cfg.Crawler.PagesPerCategory,
	}, fetcher, store, sink, logger)

	report := orch.Run(ctx)

	logger.Info("crawl finished",
		zap.String("run_id", report.RunID),
		zap.String("status", string(report.Status)),
		zap.Int64("pages_payload", report.PagesPayload),
		zap.Int64("pages_empty", report.PagesEmpty),
		zap.Int64("pages_failed", report.PagesFailed),
		zap.Int64("records_inserted", report.RecordsInserted),
		zap.Int64("records_duplicate", report.RecordsDuplicate),
		zap.Int64("records_invalid", report.RecordsInvalid),
		zap.Int64("records_failed", report.RecordsFailed),
		zap.Int64("malformed_payloads", report.MalformedPayloads),
		zap.Int64("retry_recovered", report.RetryRecovered),
		zap.Int64("retry_failed", report.RetryFailed),
		zap.Duration("elapsed", report.Elapsed),
	)
	return nil
}
