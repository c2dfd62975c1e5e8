package crawler

import (
	"context"
	"time"
)

// PageStatus classifies the outcome of one listing page request.
type PageStatus string

// Page outcomes flowing from the fetcher and gate into the orchestrator.
const (
	PageStatusPayload PageStatus = "payload"
	PageStatusEmpty   PageStatus = "empty"
	PageStatusFailed  PageStatus = "failed"
)

// RequestDescriptor identifies one fetch unit. The full descriptor travels
// through the failure path so a replayed page keeps its category
// attribution instead of only its URL.
type RequestDescriptor struct {
	CategoryCode string
	Page         int
	URL          string
}

// PageResult is the fetcher's answer for one descriptor.
type PageResult struct {
	Descriptor RequestDescriptor
	Status     PageStatus
	Body       []byte
}

// JobRecord is one normalized listing ready for storage. Records are built
// once by the normalizer and never mutated or overwritten afterwards.
type JobRecord struct {
	JobID           string
	JobName         string
	Salary          int
	Degree          string
	Category        string
	Major           string
	Welfare         string
	HeadCount       string
	PublishDate     time.Time
	UpdateDate      time.Time
	Source          string
	CompanyName     string
	Area            string
	CompanyScale    string
	CompanyProperty string
}

// PersistResult reports what a RecordWriter did with a record.
type PersistResult string

// Persistence outcomes.
const (
	PersistInserted      PersistResult = "inserted"
	PersistAlreadyExists PersistResult = "already_exists"
	PersistFailed        PersistResult = "failed"
)

// RecordWriter persists normalized records with write-once semantics under
// the (job_name, area, company_name) natural key.
type RecordWriter interface {
	Persist(ctx context.Context, record JobRecord) (PersistResult, error)
}

// PageFetcher issues one bounded, retried page fetch.
type PageFetcher interface {
	Fetch(ctx context.Context, desc RequestDescriptor) PageResult
}

// PayloadSink optionally archives raw page bodies. Failures are logged by
// the orchestrator and never affect the pipeline.
type PayloadSink interface {
	Store(desc RequestDescriptor, body []byte) error
}

// RunStatus is the terminal state of a crawl run.
type RunStatus string

// Terminal run states. CompletedWithFailures means the retry pass still
// left pages failed; those are logged, not escalated.
const (
	RunCompleted             RunStatus = "completed"
	RunCompletedWithFailures RunStatus = "completed_with_failures"
)

// RunReport summarizes one crawl run.
type RunReport struct {
	RunID             string
	Status            RunStatus
	PagesPayload      int64
	PagesEmpty        int64
	PagesFailed       int64
	RecordsInserted   int64
	RecordsDuplicate  int64
	RecordsInvalid    int64
	RecordsFailed     int64
	MalformedPayloads int64
	RetryRecovered    int64
	RetryFailed       int64
	Elapsed           time.Duration
}
