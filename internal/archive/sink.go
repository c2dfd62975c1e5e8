// Package archive persists raw page payloads to the local filesystem for
// offline reprocessing.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jobsift/ncss-crawler/internal/crawler"
)

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Sink writes one file per archived page under
// <dir>/<category>/page-<n>.json. A later crawl of the same page
// overwrites the earlier snapshot.
type Sink struct {
	dir      string
	maxBytes int64
}

// NewSink creates the root directory if needed. maxBytes <= 0 disables the
// size cap.
func NewSink(dir string, maxBytes int64) (*Sink, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Sink{dir: dir, maxBytes: maxBytes}, nil
}

// Store writes one payload body.
func (s *Sink) Store(desc crawler.RequestDescriptor, body []byte) error {
	if s.maxBytes > 0 && int64(len(body)) > s.maxBytes {
		return fmt.Errorf("payload is %d bytes, cap is %d", len(body), s.maxBytes)
	}
	sub := filepath.Join(s.dir, sanitize(desc.CategoryCode))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return fmt.Errorf("create category directory: %w", err)
	}
	path := filepath.Join(sub, fmt.Sprintf("page-%d.json", desc.Page))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

func sanitize(s string) string {
	clean := unsafePathChars.ReplaceAllString(s, "_")
	if clean == "" {
		return "unknown"
	}
	return clean
}
