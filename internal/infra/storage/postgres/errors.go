package postgres

import (
	"errors"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ahrav/tinydal/internal/infra/storage"
)

// classify tags err with its storage kind. Unrecognized errors are returned
// unchanged so callers still see the pgx cause.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if kind := kindOf(err); kind != nil {
		return storage.Wrap(op, kind, err)
	}
	return err
}

func kindOf(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
			return storage.ErrConstraintViolation
		case pgerrcode.IsTransactionRollback(pgErr.Code):
			return storage.ErrConcurrencyConflict
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgErr.Code == pgerrcode.AdminShutdown,
			pgErr.Code == pgerrcode.CannotConnectNow:
			return storage.ErrConnectionFailure
		}
		return nil
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return storage.ErrConnectionFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return storage.ErrConnectionFailure
	}
	if pgconn.Timeout(err) {
		return storage.ErrConnectionFailure
	}
	return nil
}
