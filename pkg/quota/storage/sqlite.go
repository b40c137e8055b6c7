package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver ("sqlite3")
	_ "modernc.org/sqlite"          // pure-Go SQLite driver ("sqlite")
)

// Supported database/sql driver names.
const (
	DriverModernC = "sqlite"
	DriverCGo     = "sqlite3"
)

// SQLiteBackend implements Backend on a single SQLite file.
//
// SQLite allows one writer at a time, so the pool is pinned to one
// connection; the upsert statement is atomic on its own.
type SQLiteBackend struct {
	db        *sql.DB
	path      string
	done      chan struct{}
	closeOnce sync.Once

	incrementStmt *sql.Stmt
	getStmt       *sql.Stmt
	historyStmt   *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// Path is the database file. Parent directories are created.
	Path string

	// Driver is DriverModernC (default) or DriverCGo.
	Driver string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// WALMode enables write-ahead logging.
	WALMode bool

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration
}

// NewSQLiteBackend opens (or creates) the database and prepares statements.
func NewSQLiteBackend(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernC
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn, err := sqliteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	b := &SQLiteBackend{
		db:   db,
		path: cfg.Path,
		done: make(chan struct{}),
	}

	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := b.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	if cfg.WALMode {
		go b.checkpointLoop(cfg.CheckpointInterval)
	}

	return b, nil
}

// sqliteDSN builds the connection string; the two drivers spell pragmas
// differently.
func sqliteDSN(cfg SQLiteBackendConfig) (string, error) {
	busy := cfg.BusyTimeout.Milliseconds()
	journal := "DELETE"
	if cfg.WALMode {
		journal = "WAL"
	}

	switch cfg.Driver {
	case DriverModernC:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)&_pragma=synchronous(NORMAL)",
			cfg.Path, busy, journal), nil
	case DriverCGo:
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=%s&_synchronous=NORMAL",
			cfg.Path, busy, journal), nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
}

func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		company_id TEXT NOT NULL,
		month TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (company_id, month)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.incrementStmt, err = s.db.Prepare(`
		INSERT INTO usage_records (company_id, month, input_tokens, output_tokens, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (company_id, month) DO UPDATE SET
			input_tokens = input_tokens + excluded.input_tokens,
			output_tokens = output_tokens + excluded.output_tokens,
			updated_at = excluded.updated_at
		RETURNING input_tokens, output_tokens, updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare increment statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT input_tokens, output_tokens, updated_at
		FROM usage_records
		WHERE company_id = ? AND month = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.historyStmt, err = s.db.Prepare(`
		SELECT month, input_tokens, output_tokens, updated_at
		FROM usage_records
		WHERE company_id = ?
		ORDER BY month DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history statement: %w", err)
	}

	return nil
}

// Increment runs the upsert and returns the post-update counters.
func (s *SQLiteBackend) Increment(ctx context.Context, companyID string, month time.Time, inputTokens, outputTokens int64) (*UsageRecord, error) {
	if err := validateIncrement(companyID, inputTokens, outputTokens); err != nil {
		return nil, err
	}

	rec := &UsageRecord{CompanyID: companyID, Month: MonthBucket(month)}
	var updatedAt int64
	err := s.incrementStmt.QueryRowContext(ctx,
		companyID, MonthKey(month), inputTokens, outputTokens, time.Now().UnixMilli(),
	).Scan(&rec.InputTokens, &rec.OutputTokens, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to increment usage: %w", err)
	}
	rec.UpdatedAt = time.UnixMilli(updatedAt)

	return rec, nil
}

// Get returns the record, or nil if the bucket has not been opened.
func (s *SQLiteBackend) Get(ctx context.Context, companyID string, month time.Time) (*UsageRecord, error) {
	rec := &UsageRecord{CompanyID: companyID, Month: MonthBucket(month)}
	var updatedAt int64
	err := s.getStmt.QueryRowContext(ctx, companyID, MonthKey(month)).
		Scan(&rec.InputTokens, &rec.OutputTokens, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load usage: %w", err)
	}
	rec.UpdatedAt = time.UnixMilli(updatedAt)

	return rec, nil
}

// History returns up to limit records, newest first. A non-positive limit
// returns every month.
func (s *SQLiteBackend) History(ctx context.Context, companyID string, limit int) ([]*UsageRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.historyStmt.QueryContext(ctx, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var out []*UsageRecord
	for rows.Next() {
		var (
			monthKey  string
			updatedAt int64
		)
		rec := &UsageRecord{CompanyID: companyID}
		if err := rows.Scan(&monthKey, &rec.InputTokens, &rec.OutputTokens, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if rec.Month, err = ParseMonthKey(monthKey); err != nil {
			return nil, fmt.Errorf("invalid month %q: %w", monthKey, err)
		}
		rec.UpdatedAt = time.UnixMilli(updatedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

// Close releases statements and the database. It is idempotent.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.incrementStmt, s.getStmt, s.historyStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})

	return closeErr
}

func (s *SQLiteBackend) checkpointLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
