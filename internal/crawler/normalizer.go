package crawler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// defaultSource is stored when the listing does not name its source.
	defaultSource = "大学生就业服务平台"
	// maxMajorRunes caps the major field to the storage column width.
	maxMajorRunes = 500
	// salaryUnit converts the upstream pay field, expressed in thousands,
	// to absolute monthly units.
	salaryUnit = 1000
)

// MalformedPayloadError reports a payload whose shape did not match the
// listing schema. The whole payload is dropped; sibling pages are not
// affected.
type MalformedPayloadError struct {
	Category string
	Page     int
	Err      error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed listing payload (category %s, page %d): %v", e.Category, e.Page, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// flexString accepts a JSON string or number; the upstream is not
// consistent about quoting identifiers and counts.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// rawListing models one listing object as served upstream. Required keys
// are pointers so a missing or null field fails the payload instead of
// silently zeroing a record.
type rawListing struct {
	JobID         *flexString `json:"jobId"`
	JobName       *string     `json:"jobName"`
	LowMonthPay   *flexString `json:"lowMonthPay"`
	DegreeName    *string     `json:"degreeName"`
	Major         *string     `json:"major"`
	RecTags       *string     `json:"recTags"`
	HeadCount     *flexString `json:"headCount"`
	SourcesNameCh *string     `json:"sourcesNameCh"`
	RecName       *string     `json:"recName"`
	AreaCodeName  *string     `json:"areaCodeName"`
	RecScale      *string     `json:"recScale"`
	RecProperty   *string     `json:"recProperty"`
	PublishDate   *int64      `json:"publishDate"`
	UpdateDate    *int64      `json:"updateDate"`
}

func (r rawListing) missingField() string {
	required := []struct {
		name string
		ok   bool
	}{
		{"jobId", r.JobID != nil},
		{"jobName", r.JobName != nil},
		{"lowMonthPay", r.LowMonthPay != nil},
		{"degreeName", r.DegreeName != nil},
		{"headCount", r.HeadCount != nil},
		{"recName", r.RecName != nil},
		{"areaCodeName", r.AreaCodeName != nil},
		{"recProperty", r.RecProperty != nil},
		{"publishDate", r.PublishDate != nil},
		{"updateDate", r.UpdateDate != nil},
	}
	for _, f := range required {
		if !f.ok {
			return f.name
		}
	}
	return ""
}

type listingPayload struct {
	Data *struct {
		List []rawListing `json:"list"`
	} `json:"data"`
}

// Normalize maps one raw payload into the valid JobRecords it carries,
// resolving every record to the given category name. It returns the number
// of listings dropped by the validity filter (zero salary or empty head
// count). One malformed listing fails the whole payload; there is no
// partial-record guesswork.
func Normalize(body []byte, desc RequestDescriptor, category string) ([]JobRecord, int, error) {
	fail := func(err error) ([]JobRecord, int, error) {
		return nil, 0, &MalformedPayloadError{Category: desc.CategoryCode, Page: desc.Page, Err: err}
	}

	var payload listingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fail(fmt.Errorf("decode payload: %w", err))
	}
	if payload.Data == nil || payload.Data.List == nil {
		return fail(fmt.Errorf("listing array missing"))
	}

	records := make([]JobRecord, 0, len(payload.Data.List))
	invalid := 0
	for i, raw := range payload.Data.List {
		if name := raw.missingField(); name != "" {
			return fail(fmt.Errorf("listing %d: missing field %q", i, name))
		}
		pay, err := strconv.Atoi(strings.TrimSpace(string(*raw.LowMonthPay)))
		if err != nil {
			return fail(fmt.Errorf("listing %d: parse lowMonthPay: %w", i, err))
		}

		record := JobRecord{
			JobID:           string(*raw.JobID),
			JobName:         *raw.JobName,
			Salary:          pay * salaryUnit,
			Degree:          *raw.DegreeName,
			Category:        category,
			Major:           truncateRunes(stringOrEmpty(raw.Major), maxMajorRunes),
			Welfare:         stringOrEmpty(raw.RecTags),
			HeadCount:       string(*raw.HeadCount),
			PublishDate:     epochMillisToDate(*raw.PublishDate),
			UpdateDate:      epochMillisToDate(*raw.UpdateDate),
			Source:          stringOrDefault(raw.SourcesNameCh, defaultSource),
			CompanyName:     *raw.RecName,
			Area:            *raw.AreaCodeName,
			CompanyScale:    stringOrEmpty(raw.RecScale),
			CompanyProperty: *raw.RecProperty,
		}

		if record.Salary == 0 || record.HeadCount == "" {
			invalid++
			TotalRecordsInvalid.Inc()
			continue
		}
		records = append(records, record)
	}
	return records, invalid, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stringOrDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// epochMillisToDate converts an upstream millisecond timestamp to the
// local calendar date. Sub-day precision is dropped to match the date-only
// storage columns.
func epochMillisToDate(ms int64) time.Time {
	t := time.UnixMilli(ms).Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
