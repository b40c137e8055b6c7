package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmptyCompanyID is returned when an operation is given no company.
	ErrEmptyCompanyID = errors.New("company id cannot be empty")

	// ErrNegativeTokens is returned when an increment carries a negative count.
	ErrNegativeTokens = errors.New("token counts cannot be negative")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage backend is closed")
)

// monthLayout is the persisted form of a month bucket.
const monthLayout = "2006-01"

// Backend persists monthly usage counters. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Increment atomically adds the token counts to the (companyID, month)
	// bucket, creating it if absent, and returns the updated record.
	Increment(ctx context.Context, companyID string, month time.Time, inputTokens, outputTokens int64) (*UsageRecord, error)

	// Get returns the record for the bucket, or nil if none exists yet.
	Get(ctx context.Context, companyID string, month time.Time) (*UsageRecord, error)

	// History returns up to limit records for the company, newest month first.
	History(ctx context.Context, companyID string, limit int) ([]*UsageRecord, error)

	// Close releases any resources held by the backend.
	Close() error
}

// UsageRecord is one company's token consumption for one month.
type UsageRecord struct {
	CompanyID string

	// Month is the first instant of the bucket's month in UTC.
	Month time.Time

	InputTokens  int64
	OutputTokens int64

	// UpdatedAt is when the record was last incremented.
	UpdatedAt time.Time
}

// Total returns input plus output tokens.
func (r *UsageRecord) Total() int64 {
	if r == nil {
		return 0
	}
	return r.InputTokens + r.OutputTokens
}

// MonthBucket returns the first instant of t's month in UTC.
func MonthBucket(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats the bucket containing t, e.g. "2026-10".
func MonthKey(t time.Time) string {
	return MonthBucket(t).Format(monthLayout)
}

// ParseMonthKey parses a key produced by MonthKey.
func ParseMonthKey(key string) (time.Time, error) {
	return time.ParseInLocation(monthLayout, key, time.UTC)
}

func validateIncrement(companyID string, inputTokens, outputTokens int64) error {
	if companyID == "" {
		return ErrEmptyCompanyID
	}
	if inputTokens < 0 || outputTokens < 0 {
		return ErrNegativeTokens
	}
	return nil
}
