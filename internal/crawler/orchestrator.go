package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobsift/ncss-crawler/internal/catalog"
)

// OrchestratorConfig controls the category/page sweep.
type OrchestratorConfig struct {
	BaseURL          string
	PagesPerCategory int
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.ncss.cn/student/jobs"
	}
	if c.PagesPerCategory <= 0 {
		c.PagesPerCategory = 10
	}
	return c
}

// Orchestrator drives the category × page grid: it fans out page fetches,
// fans in normalize and persist work, and replays failed pages once after
// the full sweep. Categories are processed strictly in order; within a
// category all pages fly concurrently.
type Orchestrator struct {
	cfg     OrchestratorConfig
	fetcher PageFetcher
	writer  RecordWriter
	sink    PayloadSink
	logger  *zap.Logger
}

// NewOrchestrator wires the pipeline. sink may be nil to disable payload
// archiving.
func NewOrchestrator(
	cfg OrchestratorConfig,
	fetcher PageFetcher,
	writer RecordWriter,
	sink PayloadSink,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg.withDefaults(),
		fetcher: fetcher,
		writer:  writer,
		sink:    sink,
		logger:  logger,
	}
}

// runCounters aggregates per-task outcomes. Persist tasks for a batch run
// concurrently, so every field is atomic.
type runCounters struct {
	pagesPayload      atomic.Int64
	pagesEmpty        atomic.Int64
	pagesFailed       atomic.Int64
	recordsInserted   atomic.Int64
	recordsDuplicate  atomic.Int64
	recordsInvalid    atomic.Int64
	recordsFailed     atomic.Int64
	malformedPayloads atomic.Int64
	retryRecovered    atomic.Int64
	retryFailed       atomic.Int64
}

// Run executes one full crawl and returns its report. Per-page and
// per-record failures are contained and logged; only the retry pass's
// leftovers demote the terminal status to CompletedWithFailures.
func (o *Orchestrator) Run(ctx context.Context) RunReport {
	start := time.Now()
	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run_id", runID))

	counters := &runCounters{}
	var pending []RequestDescriptor

	for _, code := range catalog.Codes() {
		name, _ := catalog.Name(code)
		logger.Info("processing category",
			zap.String("code", code),
			zap.String("category", name),
		)

		results := o.fetchPages(ctx, o.categoryDescriptors(code))

		batch := make([]PageResult, 0, len(results))
		for _, res := range results {
			switch o.classify(res) {
			case PageStatusFailed:
				counters.pagesFailed.Add(1)
				pending = append(pending, res.Descriptor)
			case PageStatusEmpty:
				counters.pagesEmpty.Add(1)
				TotalPagesEmpty.Inc()
			case PageStatusPayload:
				counters.pagesPayload.Add(1)
				batch = append(batch, res)
			}
		}
		o.processBatch(ctx, logger, name, batch, counters)
	}

	if len(pending) > 0 {
		o.retryPass(ctx, logger, pending, counters)
	}

	status := RunCompleted
	if counters.retryFailed.Load() > 0 {
		status = RunCompletedWithFailures
	}
	return RunReport{
		RunID:             runID,
		Status:            status,
		PagesPayload:      counters.pagesPayload.Load(),
		PagesEmpty:        counters.pagesEmpty.Load(),
		PagesFailed:       counters.pagesFailed.Load(),
		RecordsInserted:   counters.recordsInserted.Load(),
		RecordsDuplicate:  counters.recordsDuplicate.Load(),
		RecordsInvalid:    counters.recordsInvalid.Load(),
		RecordsFailed:     counters.recordsFailed.Load(),
		MalformedPayloads: counters.malformedPayloads.Load(),
		RetryRecovered:    counters.retryRecovered.Load(),
		RetryFailed:       counters.retryFailed.Load(),
		Elapsed:           time.Since(start),
	}
}

func (o *Orchestrator) categoryDescriptors(code string) []RequestDescriptor {
	descs := make([]RequestDescriptor, 0, o.cfg.PagesPerCategory)
	for page := 1; page <= o.cfg.PagesPerCategory; page++ {
		descs = append(descs, RequestDescriptor{
			CategoryCode: code,
			Page:         page,
			URL:          o.pageURL(code, page),
		})
	}
	return descs
}

func (o *Orchestrator) pageURL(code string, page int) string {
	return fmt.Sprintf("%s/jobslist/ajax/?limit=20&offset=%d&categoryCode=%s", o.cfg.BaseURL, page, code)
}

// fetchPages fans all descriptors out through the fetcher and waits for
// the full batch; completion order is not significant.
func (o *Orchestrator) fetchPages(ctx context.Context, descs []RequestDescriptor) []PageResult {
	results := make([]PageResult, len(descs))
	var wg sync.WaitGroup
	for i, desc := range descs {
		wg.Add(1)
		go func(i int, desc RequestDescriptor) {
			defer wg.Done()
			results[i] = o.fetcher.Fetch(ctx, desc)
		}(i, desc)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) classify(res PageResult) PageStatus {
	if res.Status == PageStatusFailed {
		return PageStatusFailed
	}
	return Classify(res.Body)
}

// processBatch runs one normalize+persist task per payload page and waits
// for all of them before the next category starts.
func (o *Orchestrator) processBatch(
	ctx context.Context,
	logger *zap.Logger,
	category string,
	batch []PageResult,
	counters *runCounters,
) {
	var wg sync.WaitGroup
	for _, res := range batch {
		wg.Add(1)
		go func(res PageResult) {
			defer wg.Done()
			o.processPayload(ctx, logger, category, res, counters)
		}(res)
	}
	wg.Wait()
}

func (o *Orchestrator) processPayload(
	ctx context.Context,
	logger *zap.Logger,
	category string,
	res PageResult,
	counters *runCounters,
) {
	if o.sink != nil {
		if err := o.sink.Store(res.Descriptor, res.Body); err != nil {
			logger.Warn("archive payload failed",
				zap.String("category", res.Descriptor.CategoryCode),
				zap.Int("page", res.Descriptor.Page),
				zap.Error(err),
			)
		}
	}

	records, invalid, err := Normalize(res.Body, res.Descriptor, category)
	counters.recordsInvalid.Add(int64(invalid))
	if err != nil {
		counters.malformedPayloads.Add(1)
		TotalMalformedPayloads.Inc()
		logger.Warn("payload normalization failed", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, record := range records {
		wg.Add(1)
		go func(record JobRecord) {
			defer wg.Done()
			o.persistRecord(ctx, logger, record, counters)
		}(record)
	}
	wg.Wait()
}

func (o *Orchestrator) persistRecord(
	ctx context.Context,
	logger *zap.Logger,
	record JobRecord,
	counters *runCounters,
) {
	outcome, err := o.writer.Persist(ctx, record)
	switch {
	case err != nil:
		counters.recordsFailed.Add(1)
		logger.Error("persist record failed",
			zap.String("job_name", record.JobName),
			zap.String("area", record.Area),
			zap.String("company", record.CompanyName),
			zap.Error(err),
		)
	case outcome == PersistInserted:
		counters.recordsInserted.Add(1)
		TotalRecordsInserted.Inc()
	case outcome == PersistAlreadyExists:
		counters.recordsDuplicate.Add(1)
		TotalRecordsDuplicate.Inc()
	}
}

// retryPass replays every descriptor that failed during the sweep, once,
// through the same admission gate. Pages still failing afterwards are
// logged and counted, never retried again.
func (o *Orchestrator) retryPass(
	ctx context.Context,
	logger *zap.Logger,
	pending []RequestDescriptor,
	counters *runCounters,
) {
	logger.Info("replaying failed page requests", zap.Int("pending", len(pending)))

	results := o.fetchPages(ctx, pending)

	var wg sync.WaitGroup
	for _, res := range results {
		switch o.classify(res) {
		case PageStatusFailed:
			counters.retryFailed.Add(1)
			logger.Error("page failed after retry pass",
				zap.String("category", res.Descriptor.CategoryCode),
				zap.Int("page", res.Descriptor.Page),
				zap.String("url", res.Descriptor.URL),
			)
		case PageStatusEmpty:
			counters.retryRecovered.Add(1)
			counters.pagesEmpty.Add(1)
			TotalPagesEmpty.Inc()
		case PageStatusPayload:
			counters.retryRecovered.Add(1)
			counters.pagesPayload.Add(1)
			name, _ := catalog.Name(res.Descriptor.CategoryCode)
			wg.Add(1)
			go func(res PageResult, name string) {
				defer wg.Done()
				o.processPayload(ctx, logger, name, res, counters)
			}(res, name)
		}
	}
	wg.Wait()
}
