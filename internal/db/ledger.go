package db

import (
	"context"
	"fmt"

	"github.com/cybertec-postgresql/census_runner/internal/sync"
)

// Ledger appends triggers and status checks to PostgreSQL
type Ledger struct {
	db    PgxIface
	close func()
}

// NewLedger wraps an existing connection
func NewLedger(db PgxIface) *Ledger {
	return &Ledger{db: db, close: func() {}}
}

// OpenLedger connects to connStr and brings the ledger schema up to date
func OpenLedger(ctx context.Context, connStr string) (*Ledger, error) {
	pool, err := NewWithRetry(ctx, connStr)
	if err != nil {
		return nil, err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	err = ApplyMigrations(ctx, conn.Conn())
	conn.Release()
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Ledger{db: pool, close: pool.Close}, nil
}

// Close releases the underlying pool
func (l *Ledger) Close() {
	l.close()
}

// RecordTrigger registers a freshly triggered run. Triggering the same run id
// twice keeps one row with the latest trigger time.
func (l *Ledger) RecordTrigger(ctx context.Context, syncID, runID string) error {
	query := `
		INSERT INTO census_sync_run (sync_run_id, sync_id)
		VALUES ($1, $2)
		ON CONFLICT (sync_run_id) DO UPDATE
		SET sync_id = EXCLUDED.sync_id, triggered_at = now()
	`
	if _, err := l.db.Exec(ctx, query, runID, syncID); err != nil {
		return fmt.Errorf("failed to record trigger of sync run %s: %w", runID, err)
	}
	return nil
}

// RecordCheck appends one classified snapshot
func (l *Ledger) RecordCheck(ctx context.Context, s *sync.Snapshot, result sync.Result) error {
	query := `
		INSERT INTO census_sync_check (sync_run_id, status, result, records_processed,
			records_failed, records_invalid, error_code, error_message, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := l.db.Exec(ctx, query, s.RunID, string(s.Status), result.String(),
		s.RecordsProcessed, s.RecordsFailed, s.RecordsInvalid, s.ErrorCode, s.ErrorMessage, s.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to record check of sync run %s: %w", s.RunID, err)
	}
	return nil
}
