package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/couchcryptid/weather-quake-ingest/internal/domain"
)

// Execer runs a statement. pgx.Tx, pgx.Conn and pgxpool.Pool all satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Beginner starts a transaction. *DB and pgxpool.Pool satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// inTx runs fn inside a new transaction and commits it. The transaction is
// rolled back on every other exit path, including a panic in fn.
func inTx(ctx context.Context, db Beginner, op string, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return &domain.StorageError{Op: op + ": begin", Err: err}
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &domain.StorageError{Op: op + ": commit", Err: err}
	}
	return nil
}
