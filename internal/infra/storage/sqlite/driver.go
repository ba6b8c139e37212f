// Package sqlite provides the embedded storage driver backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/ahrav/tinydal/internal/infra/storage"
)

var _ storage.Driver = (*Driver)(nil)

const defaultBusyTimeout = 5 * time.Second

// Config captures how the database file is opened.
type Config struct {
	// Path is the database file. ":memory:" is accepted but every pooled
	// connection then sees its own database, so MaxOpenConns is forced to 1.
	Path string

	// MaxOpenConns controls the pool size exposed by database/sql.
	MaxOpenConns int

	// BusyTimeout configures PRAGMA busy_timeout.
	BusyTimeout time.Duration
}

// DSN renders the modernc connection string with the pragmas the driver relies on.
func (c Config) DSN() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	if !c.inMemory() {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}
	return c.Path + sep + q.Encode()
}

func (c Config) inMemory() bool {
	return c.Path == ":memory:" || strings.Contains(c.Path, "mode=memory")
}

// Open opens and pings the database described by cfg.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	db, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, storage.Wrap("open", storage.ErrConnectionFailure, err)
	}
	switch {
	case cfg.inMemory():
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storage.Wrap("ping", storage.ErrConnectionFailure, err)
	}
	return db, nil
}

// Driver opens database/sql transactions against a SQLite database.
// SQLite transactions are always serializable, so the requested isolation
// level is accepted and not forwarded.
type Driver struct {
	db *sql.DB
}

// New creates a SQLite driver over db. The driver owns db and closes it in Close.
func New(db *sql.DB) *Driver { return &Driver{db: db} }

// DB exposes the underlying handle for migrations and tooling.
func (d *Driver) DB() *sql.DB { return d.db }

func (d *Driver) Name() string { return "sqlite" }

func (d *Driver) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }

func (d *Driver) BeginTx(ctx context.Context, _ storage.IsolationLevel) (storage.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin", err)
	}
	return &transaction{tx: tx}, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	return classify("ping", d.db.PingContext(ctx))
}

func (d *Driver) Close() error { return d.db.Close() }

type transaction struct {
	tx *sql.Tx
}

func (t *transaction) Select(ctx context.Context, dst any, query string, args ...any) error {
	return classify("select", sqlscan.Select(ctx, t.tx, dst, query, args...))
}

func (t *transaction) InsertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, classify("insert", err)
	}
	return id, nil
}

func (t *transaction) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("rows affected", err)
	}
	return n, nil
}

func (t *transaction) Commit(context.Context) error {
	return classify("commit", t.tx.Commit())
}

func (t *transaction) Rollback(context.Context) error {
	return classify("rollback", t.tx.Rollback())
}
