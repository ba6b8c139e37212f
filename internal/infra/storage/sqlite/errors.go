package sqlite

import (
	"errors"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ahrav/tinydal/internal/infra/storage"
)

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var sqlErr *msqlite.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	// Extended result codes keep the primary code in the low byte.
	switch sqlErr.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return storage.Wrap(op, storage.ErrConstraintViolation, err)
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return storage.Wrap(op, storage.ErrConcurrencyConflict, err)
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_NOTADB:
		return storage.Wrap(op, storage.ErrConnectionFailure, err)
	default:
		return err
	}
}
