// Package memory provides an in-memory record writer for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/jobsift/ncss-crawler/internal/crawler"
)

type naturalKey struct {
	jobName     string
	area        string
	companyName string
}

// JobStore keeps records in a map keyed by the natural key. Unlike the
// Postgres writer its check-then-insert is atomic, so concurrent writers
// on the same key cannot produce duplicates.
type JobStore struct {
	mu      sync.Mutex
	records map[naturalKey]crawler.JobRecord
}

// NewJobStore creates an empty store.
func NewJobStore() *JobStore {
	return &JobStore{records: make(map[naturalKey]crawler.JobRecord)}
}

// Persist stores the record unless its natural key is already present.
func (s *JobStore) Persist(ctx context.Context, record crawler.JobRecord) (crawler.PersistResult, error) {
	if err := ctx.Err(); err != nil {
		return crawler.PersistFailed, err
	}
	key := naturalKey{
		jobName:     record.JobName,
		area:        record.Area,
		companyName: record.CompanyName,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return crawler.PersistAlreadyExists, nil
	}
	s.records[key] = record
	return crawler.PersistInserted, nil
}

// Len reports the number of stored records.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a snapshot of the stored records.
func (s *JobStore) Records() []crawler.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]crawler.JobRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	return out
}
