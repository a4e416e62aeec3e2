// Package migrations contains the schema of the census_runner run ledger.
package migrations

import (
	"context"
	"fmt"
	"sync"

	migrator "github.com/cybertec-postgresql/pgx-migrator"
	"github.com/jackc/pgx/v5"
)

// TableName keeps track of applied ledger migrations
const TableName = "census_runner_migrations"

// migrations holds function returning all upgrade migrations needed
var migrations func() migrator.Option = func() migrator.Option {
	return migrator.Migrations(
		&migrator.Migration{
			Name: "001_create_ledger_tables",
			Func: func(ctx context.Context, tx pgx.Tx) error {
				_, err := tx.Exec(ctx, `
					-- One row per triggered sync run
					CREATE TABLE census_sync_run (
						sync_run_id text PRIMARY KEY,
						sync_id text NOT NULL,
						triggered_at timestamp with time zone NOT NULL DEFAULT now()
					);

					-- One row per classified status check
					CREATE TABLE census_sync_check (
						id bigserial PRIMARY KEY,
						sync_run_id text NOT NULL,
						checked_at timestamp with time zone NOT NULL DEFAULT now(),
						status text NOT NULL,
						result text NOT NULL,
						records_processed bigint,
						records_failed bigint,
						records_invalid bigint,
						error_code text,
						error_message text,
						completed_at text
					);

					CREATE INDEX idx_census_sync_check_run ON census_sync_check(sync_run_id, checked_at DESC);
				`)
				return err
			},
		},
		// adding new migration here
	)
}

var (
	migratorInstance *migrator.Migrator
	migratorErr      error
	once             sync.Once
)

// getMigrator returns a singleton migrator instance
func getMigrator() (*migrator.Migrator, error) {
	once.Do(func() {
		migratorInstance, migratorErr = migrator.New(
			migrations(),
			migrator.TableName(TableName),
		)
	})
	return migratorInstance, migratorErr
}

// Apply applies all pending migrations to the database
func Apply(ctx context.Context, conn *pgx.Conn) error {
	m, err := getMigrator()
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Migrate(ctx, conn); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// NeedsUpgrade checks if the database needs migration
func NeedsUpgrade(ctx context.Context, conn *pgx.Conn) (bool, error) {
	m, err := getMigrator()
	if err != nil {
		return false, fmt.Errorf("failed to create migrator: %w", err)
	}
	needUpgrade, err := m.NeedUpgrade(ctx, conn)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return needUpgrade, nil
}
