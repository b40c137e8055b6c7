package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxAPI is the subset of *pgxpool.Pool used by PostgresBackend.
type pgxAPI interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSchema creates the usage table. NewPostgresBackend runs it.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS usage_records (
	company_id    TEXT        NOT NULL,
	month         DATE        NOT NULL,
	input_tokens  BIGINT      NOT NULL DEFAULT 0,
	output_tokens BIGINT      NOT NULL DEFAULT 0,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (company_id, month)
)`

const pgIncrementSQL = `
INSERT INTO usage_records (company_id, month, input_tokens, output_tokens, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (company_id, month) DO UPDATE SET
	input_tokens  = usage_records.input_tokens + EXCLUDED.input_tokens,
	output_tokens = usage_records.output_tokens + EXCLUDED.output_tokens,
	updated_at    = EXCLUDED.updated_at
RETURNING input_tokens, output_tokens, updated_at`

const pgGetSQL = `
SELECT input_tokens, output_tokens, updated_at
FROM usage_records
WHERE company_id = $1 AND month = $2`

const pgHistorySQL = `
SELECT month, input_tokens, output_tokens, updated_at
FROM usage_records
WHERE company_id = $1
ORDER BY month DESC
LIMIT $2`

// PostgresBackend implements Backend on PostgreSQL through pgx.
type PostgresBackend struct {
	db    pgxAPI
	close func()
}

// NewPostgresBackend wraps an existing pool and ensures the schema exists.
// The pool is closed by Close only if ownPool is true.
func NewPostgresBackend(ctx context.Context, pool *pgxpool.Pool, ownPool bool) (*PostgresBackend, error) {
	if pool == nil {
		return nil, errors.New("postgres pool cannot be nil")
	}
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	b := &PostgresBackend{db: pool, close: func() {}}
	if ownPool {
		b.close = pool.Close
	}
	return b, nil
}

// Increment runs the upsert and returns the post-update counters.
func (p *PostgresBackend) Increment(ctx context.Context, companyID string, month time.Time, inputTokens, outputTokens int64) (*UsageRecord, error) {
	if err := validateIncrement(companyID, inputTokens, outputTokens); err != nil {
		return nil, err
	}

	bucket := MonthBucket(month)
	rec := &UsageRecord{CompanyID: companyID, Month: bucket}
	err := p.db.QueryRow(ctx, pgIncrementSQL, companyID, bucket, inputTokens, outputTokens).
		Scan(&rec.InputTokens, &rec.OutputTokens, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to increment usage: %w", err)
	}
	return rec, nil
}

// Get returns the record, or nil if the bucket has not been opened.
func (p *PostgresBackend) Get(ctx context.Context, companyID string, month time.Time) (*UsageRecord, error) {
	bucket := MonthBucket(month)
	rec := &UsageRecord{CompanyID: companyID, Month: bucket}
	err := p.db.QueryRow(ctx, pgGetSQL, companyID, bucket).
		Scan(&rec.InputTokens, &rec.OutputTokens, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load usage: %w", err)
	}
	return rec, nil
}

// History returns up to limit records, newest first. A non-positive limit
// returns every month.
func (p *PostgresBackend) History(ctx context.Context, companyID string, limit int) ([]*UsageRecord, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := p.db.Query(ctx, pgHistorySQL, companyID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var out []*UsageRecord
	for rows.Next() {
		rec := &UsageRecord{CompanyID: companyID}
		if err := rows.Scan(&rec.Month, &rec.InputTokens, &rec.OutputTokens, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Month = MonthBucket(rec.Month)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Close closes the pool when the backend owns it.
func (p *PostgresBackend) Close() error {
	p.close()
	return nil
}
