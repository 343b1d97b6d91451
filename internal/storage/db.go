// Package storage persists normalized rows in PostgreSQL. Each entity's
// identity tuple is enforced by a UNIQUE constraint (NULLS NOT DISTINCT
// where the tuple contains a nullable source), and all writes of one
// ingestion call run inside a single transaction.
package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvault/hvault/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a pgxpool.Pool and provides repository methods.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// RunMigrations applies all pending migrations. The migration files are
// embedded so the binaries work from any directory.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Writer is the write surface available inside one ingestion transaction.
// *Tx implements it over pgx; tests substitute in-memory fakes.
type Writer interface {
	UpsertMetrics(ctx context.Context, rows []models.MetricRow) error
	UpsertSleep(ctx context.Context, row models.SleepRow) error
	UpsertWorkout(ctx context.Context, row models.WorkoutRow) error
	AppendSyncEvent(ctx context.Context, ev models.SyncEvent) error
}

// Tx bundles the write methods over a single database transaction.
type Tx struct {
	tx pgx.Tx
}

// InTx runs fn inside one transaction. Either every write fn performs is
// committed, or none are — a failing ingestion call leaves no rows behind.
func (db *DB) InTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
