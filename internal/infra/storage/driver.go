// Package storage defines the boundary between the data access core and a
// concrete transactional store. Drivers live in sub packages.
package storage

import (
	"context"

	"github.com/Masterminds/squirrel"
)

// Driver opens transactions against one database.
type Driver interface {
	// Name identifies the engine in logs, spans and metrics.
	Name() string

	// Placeholder is the bind parameter format the engine expects.
	Placeholder() squirrel.PlaceholderFormat

	// BeginTx starts a transaction at the requested isolation level.
	BeginTx(ctx context.Context, level IsolationLevel) (Tx, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// Tx is a single transaction. Every error it returns has already been
// classified into one of the kinds in this package when the cause is known.
type Tx interface {
	// Select scans every row produced by query into dst, a pointer to a slice.
	Select(ctx context.Context, dst any, query string, args ...any) error

	// InsertReturningID runs an INSERT ... RETURNING id and returns the id.
	InsertReturningID(ctx context.Context, query string, args ...any) (int64, error)

	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
