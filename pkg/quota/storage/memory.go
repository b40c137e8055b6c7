package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend keeps usage records in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]map[string]*UsageRecord // company -> month key -> record
	closed  bool
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]map[string]*UsageRecord),
		now:     time.Now,
	}
}

// Increment adds the token counts under the write lock.
func (m *MemoryBackend) Increment(ctx context.Context, companyID string, month time.Time, inputTokens, outputTokens int64) (*UsageRecord, error) {
	if err := validateIncrement(companyID, inputTokens, outputTokens); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	months, ok := m.records[companyID]
	if !ok {
		months = make(map[string]*UsageRecord)
		m.records[companyID] = months
	}

	key := MonthKey(month)
	rec, ok := months[key]
	if !ok {
		rec = &UsageRecord{CompanyID: companyID, Month: MonthBucket(month)}
		months[key] = rec
	}
	rec.InputTokens += inputTokens
	rec.OutputTokens += outputTokens
	rec.UpdatedAt = m.now()

	out := *rec
	return &out, nil
}

// Get returns a copy of the record, or nil.
func (m *MemoryBackend) Get(ctx context.Context, companyID string, month time.Time) (*UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	rec, ok := m.records[companyID][MonthKey(month)]
	if !ok {
		return nil, nil
	}
	out := *rec
	return &out, nil
}

// History returns copies of the company's records, newest first.
func (m *MemoryBackend) History(ctx context.Context, companyID string, limit int) ([]*UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	out := make([]*UsageRecord, 0, len(m.records[companyID]))
	for _, rec := range m.records[companyID] {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.After(out[j].Month) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close marks the backend closed.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
