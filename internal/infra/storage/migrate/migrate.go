// Package migrate applies schema migrations before sessions are opened.
package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Postgres applies every up migration found in dir of src to the pool's database.
// The pool stays open.
func Postgres(pool *pgxpool.Pool, src fs.FS, dir string) error {
	db := stdlib.OpenDBFromPool(pool)

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create pgx migrate driver: %w", err)
	}
	m, err := newMigrate(src, dir, "pgx5", driver)
	if err != nil {
		_ = driver.Close()
		return err
	}
	defer m.Close()

	return up(m)
}

// SQLite applies every up migration found in dir of src to db. The caller keeps
// ownership of db.
func SQLite(db *sql.DB, src fs.FS, dir string) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite migrate driver: %w", err)
	}
	source, err := iofs.New(src, dir)
	if err != nil {
		return fmt.Errorf("could not open migrations %q: %w", dir, err)
	}
	// Closing m would close db as well, so only the source is released.
	defer source.Close()

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	return up(m)
}

func newMigrate(src fs.FS, dir, dbName string, driver database.Driver) (*migrate.Migrate, error) {
	source, err := iofs.New(src, dir)
	if err != nil {
		return nil, fmt.Errorf("could not open migrations %q: %w", dir, err)
	}
	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}
