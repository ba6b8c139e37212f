// Package postgres provides the PostgreSQL storage driver built on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/exaring/otelpgx"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahrav/tinydal/internal/infra/storage"
)

var _ storage.Driver = (*Driver)(nil)

// Pool is the subset of pgxpool.Pool the driver needs.
// pgxmock.PgxPoolIface satisfies it as well.
type Pool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PoolConfig tunes Connect.
type PoolConfig struct {
	DSN      string
	MinConns int32
	MaxConns int32
}

// Connect opens a traced pgx pool and verifies it with a ping.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing db config: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, storage.Wrap("open pool", storage.ErrConnectionFailure, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storage.Wrap("ping", storage.ErrConnectionFailure, err)
	}
	return pool, nil
}

// Driver opens pgx transactions.
type Driver struct {
	pool Pool
}

// New creates a PostgreSQL driver over pool. The driver owns the pool and
// closes it in Close.
func New(pool Pool) *Driver { return &Driver{pool: pool} }

func (d *Driver) Name() string { return "postgres" }

func (d *Driver) Placeholder() squirrel.PlaceholderFormat { return squirrel.Dollar }

// BeginTx starts a read-write transaction at the requested isolation level.
func (d *Driver) BeginTx(ctx context.Context, level storage.IsolationLevel) (storage.Tx, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel(level)})
	if err != nil {
		return nil, classify("begin", err)
	}
	return &transaction{tx: tx}, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	return classify("ping", d.pool.Ping(ctx))
}

func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

func isoLevel(level storage.IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case storage.ReadUncommitted:
		return pgx.ReadUncommitted
	case storage.RepeatableRead:
		return pgx.RepeatableRead
	case storage.Serializable:
		return pgx.Serializable
	default:
		return pgx.ReadCommitted
	}
}

type transaction struct {
	tx pgx.Tx
}

func (t *transaction) Select(ctx context.Context, dst any, query string, args ...any) error {
	return classify("select", pgxscan.Select(ctx, t.tx, dst, query, args...))
}

func (t *transaction) InsertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, classify("insert", err)
	}
	return id, nil
}

func (t *transaction) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, classify("exec", err)
	}
	return tag.RowsAffected(), nil
}

func (t *transaction) Commit(ctx context.Context) error {
	return classify("commit", t.tx.Commit(ctx))
}

func (t *transaction) Rollback(ctx context.Context) error {
	return classify("rollback", t.tx.Rollback(ctx))
}
