package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks the number of HTTP requests sent upstream.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_requests_total",
		Help: "The total number of HTTP requests sent.",
	})
	// TotalRequestErrors tracks attempts that failed with a transport error
	// or an unexpected status.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_request_errors_total",
		Help: "The total number of failed fetch attempts.",
	})
	// TotalRateLimitHits tracks HTTP 429 responses from upstream.
	TotalRateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_rate_limit_hits_total",
		Help: "The total number of times the crawler was rate limited.",
	})
	// TotalPagesFailed tracks pages that exhausted their attempt budget.
	TotalPagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_pages_failed_total",
		Help: "The total number of page requests that exhausted all attempts.",
	})
	// TotalPagesEmpty tracks pages classified as carrying no listings.
	TotalPagesEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_pages_empty_total",
		Help: "The total number of empty listing pages.",
	})
	// TotalRecordsInserted tracks records newly persisted.
	TotalRecordsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_records_inserted_total",
		Help: "The total number of job records inserted.",
	})
	// TotalRecordsDuplicate tracks records skipped because their natural
	// key already existed.
	TotalRecordsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_records_duplicate_total",
		Help: "The total number of job records skipped as duplicates.",
	})
	// TotalRecordsInvalid tracks listings dropped by the validity filter.
	TotalRecordsInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_records_invalid_total",
		Help: "The total number of listings dropped as invalid.",
	})
	// TotalMalformedPayloads tracks payloads dropped for shape mismatches.
	TotalMalformedPayloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncss_crawler_malformed_payloads_total",
		Help: "The total number of payloads dropped as malformed.",
	})
)
