package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/ncss-crawler/internal/policy/admission"
)

// FetcherConfig controls retry, jitter and timeout behavior.
type FetcherConfig struct {
	// Attempts is the total attempt budget per page, 429s included.
	Attempts int
	// JitterMin/JitterMax bound the politeness delay drawn before every
	// attempt.
	JitterMin time.Duration
	JitterMax time.Duration
	// BackoffMin/BackoffMax bound the extra wait after an HTTP 429.
	BackoffMin time.Duration
	BackoffMax time.Duration
	// RequestTimeout is the per-attempt deadline, nested inside
	// SessionTimeout which caps any single exchange on the shared client.
	RequestTimeout time.Duration
	SessionTimeout time.Duration
	UserAgent      string
}

func (c FetcherConfig) withDefaults() FetcherConfig {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.JitterMax <= 0 {
		c.JitterMin = 500 * time.Millisecond
		c.JitterMax = 1500 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMin = time.Second
		c.BackoffMax = 3 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	return c
}

// errRateLimited marks an attempt rejected with HTTP 429.
var errRateLimited = errors.New("upstream rate limited")

// Fetcher issues one HTTP GET per page request, bounded by the shared
// admission gate, with jitter, retry and 429 backoff. It never returns an
// error: after the attempt budget is spent the page is reported Failed and
// its descriptor surfaces to the orchestrator's retry queue.
type Fetcher struct {
	cfg    FetcherConfig
	gate   *admission.Gate
	client *http.Client
	logger *zap.Logger
}

// NewFetcher builds a Fetcher sharing one HTTP client for the run.
// Connections are not reused across requests so one slow upstream
// connection cannot serialize the others behind it.
func NewFetcher(cfg FetcherConfig, gate *admission.Gate, logger *zap.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	client := &http.Client{
		Timeout: cfg.SessionTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: cfg.RequestTimeout,
			}).DialContext,
			DisableKeepAlives: true,
			MaxConnsPerHost:   gate.Size(),
		},
	}
	return &Fetcher{
		cfg:    cfg,
		gate:   gate,
		client: client,
		logger: logger,
	}
}

// Fetch runs the bounded retry loop for one page. The admission slot is
// held for the whole loop, as in the original pipeline.
func (f *Fetcher) Fetch(ctx context.Context, desc RequestDescriptor) PageResult {
	if err := f.gate.Acquire(ctx); err != nil {
		f.logger.Warn("admission wait aborted",
			zap.String("url", desc.URL),
			zap.Error(err),
		)
		return PageResult{Descriptor: desc, Status: PageStatusFailed}
	}
	defer f.gate.Release()

	for attempt := 1; attempt <= f.cfg.Attempts; attempt++ {
		f.gate.Pause(ctx, admission.Jitter(f.cfg.JitterMin, f.cfg.JitterMax))
		if err := f.gate.Wait(ctx); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}

		body, err := f.attempt(ctx, desc)
		if err == nil {
			return PageResult{Descriptor: desc, Status: PageStatusPayload, Body: body}
		}

		TotalRequestErrors.Inc()
		if errors.Is(err, errRateLimited) {
			TotalRateLimitHits.Inc()
			wait := admission.Jitter(f.cfg.BackoffMin, f.cfg.BackoffMax)
			f.logger.Warn("rate limited by upstream",
				zap.String("url", desc.URL),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
			)
			f.gate.Pause(ctx, wait)
			continue
		}
		f.logger.Warn("fetch attempt failed",
			zap.String("category", desc.CategoryCode),
			zap.Int("page", desc.Page),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	TotalPagesFailed.Inc()
	f.logger.Error("fetch attempts exhausted",
		zap.String("category", desc.CategoryCode),
		zap.Int("page", desc.Page),
		zap.String("url", desc.URL),
		zap.Int("attempts", f.cfg.Attempts),
	)
	return PageResult{Descriptor: desc, Status: PageStatusFailed}
}

func (f *Fetcher) attempt(ctx context.Context, desc RequestDescriptor) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, desc.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	TotalRequests.Inc()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
