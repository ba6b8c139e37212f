package datacontext_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/tinydal/internal/application/datacontext"
	"github.com/ahrav/tinydal/internal/domain/repository"
	"github.com/ahrav/tinydal/internal/infra/storage"
	"github.com/ahrav/tinydal/internal/infra/storage/postgres"
	"github.com/ahrav/tinydal/internal/infra/storage/testutil"
)

func newMockSession(t *testing.T, iso pgx.TxIsoLevel, opts ...datacontext.Option) (*session, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: iso})
	return openSession(t, postgres.New(mock), opts...), mock
}

func TestPostgres_OpenForwardsIsolation(t *testing.T) {
	s, mock := newMockSession(t, pgx.Serializable, datacontext.WithIsolationLevel(storage.Serializable))
	mock.ExpectRollback()

	require.NoError(t, s.dc.Close(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_OpenFailureIsClassified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted}).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.CannotConnectNow})

	_, err = datacontext.Open(context.Background(), postgres.New(mock))
	assert.ErrorIs(t, err, storage.ErrConnectionFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindComposesScopedPredicate(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockSession(t, pgx.ReadCommitted, scoped())

	mock.ExpectQuery(`SELECT id, name, is_deleted, tenant_id FROM mock_multi_tenant_entities WHERE \(is_deleted = \$1 AND tenant_id = \$2 AND name = \$3\) LIMIT 1`).
		WithArgs(false, testutil.TenantID, "Name").
		WillReturnRows(mock.NewRows([]string{"id", "name", "is_deleted", "tenant_id"}).
			AddRow(int64(5), "Name", false, testutil.TenantID))
	mock.ExpectQuery(`SELECT id, name, is_deleted, tenant_id FROM mock_multi_tenant_entities WHERE \(tenant_id = \$1\)`).
		WithArgs(testutil.TenantID).
		WillReturnRows(mock.NewRows([]string{"id", "name", "is_deleted", "tenant_id"}))
	mock.ExpectQuery(`SELECT id, name FROM mock_entities WHERE \(name = \$1\)`).
		WithArgs("Name").
		WillReturnRows(mock.NewRows([]string{"id", "name"}))
	mock.ExpectRollback()

	found, err := s.multiTenants.FindOneBy(ctx, byName("Name"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(5), found.ID)
	assert.Equal(t, testutil.TenantID, found.TenantID)

	none, err := s.multiTenants.FindManyBy(ctx, nil, repository.PreventDeletionManagement())
	require.NoError(t, err)
	assert.Empty(t, none)

	plain, err := s.entities.FindManyBy(ctx, byName("Name"))
	require.NoError(t, err)
	assert.Empty(t, plain)

	require.NoError(t, s.dc.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveStatementsCarryTenantGuard(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockSession(t, pgx.ReadCommitted, scoped())

	mock.ExpectQuery(`INSERT INTO mock_multi_tenant_entities \(name,is_deleted,tenant_id\) VALUES \(\$1,\$2,\$3\) RETURNING id`).
		WithArgs("Name", false, testutil.TenantID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`UPDATE mock_multi_tenant_entities SET name = \$1, is_deleted = \$2, tenant_id = \$3 WHERE \(?id = \$4 AND tenant_id = \$5\)?`).
		WithArgs("NAME", false, testutil.TenantID, int64(11), testutil.TenantID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM mock_multi_tenant_entities WHERE \(?id = \$1 AND tenant_id = \$2\)?`).
		WithArgs(int64(11), testutil.TenantID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	e := &testutil.MockMultiTenantEntity{Name: "Name"}
	require.NoError(t, s.multiTenants.Insert(ctx, e))
	require.NoError(t, s.dc.Save(ctx))
	assert.Equal(t, int64(11), e.ID)
	assert.Equal(t, testutil.TenantID, e.TenantID)

	// Field changes made after staging are part of the flushed statement.
	require.NoError(t, s.multiTenants.Update(ctx, e))
	e.Name = "NAME"
	require.NoError(t, s.multiTenants.DeleteByID(ctx, e.ID))
	require.NoError(t, s.dc.Save(ctx))

	require.NoError(t, s.dc.Commit(ctx))
	require.NoError(t, s.dc.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SerializationFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockSession(t, pgx.ReadCommitted)

	mock.ExpectExec(`UPDATE mock_entities SET name = \$1 WHERE \(?id = \$2\)?`).
		WithArgs("x", int64(3)).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	mock.ExpectRollback()

	e := &testutil.MockEntity{Name: "x"}
	e.ID = 3
	require.NoError(t, s.entities.Update(ctx, e))

	err := s.dc.Save(ctx)
	assert.ErrorIs(t, err, storage.ErrConcurrencyConflict)
	assert.Equal(t, datacontext.StateRolledBack, s.dc.State())

	require.NoError(t, s.dc.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CommitFailureIsNeverCommitted(t *testing.T) {
	ctx := context.Background()
	metrics := newRecordingMetrics()
	s, mock := newMockSession(t, pgx.ReadCommitted, datacontext.WithMetrics(metrics))

	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	mock.ExpectRollback()

	err := s.dc.Commit(ctx)
	assert.ErrorIs(t, err, storage.ErrConcurrencyConflict)
	assert.Equal(t, datacontext.StateRolledBack, s.dc.State())

	require.NoError(t, s.dc.Close(ctx))
	assert.Equal(t, datacontext.StateDisposed, s.dc.State())
	assert.NoError(t, mock.ExpectationsWereMet())

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Zero(t, metrics.commits)
	assert.Equal(t, 1, metrics.rollbacks[datacontext.RollbackCommitFailed])
}

func TestPostgres_CloseReportsReleaseFailure(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockSession(t, pgx.ReadCommitted)

	boom := errors.New("connection reset")
	mock.ExpectRollback().WillReturnError(boom)

	err := s.dc.Close(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, datacontext.StateDisposed, s.dc.State())
	assert.NoError(t, s.dc.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CloseKeepsCommittedOutcome(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockSession(t, pgx.ReadCommitted)
	mock.ExpectCommit()

	require.NoError(t, s.dc.Commit(ctx))
	require.NoError(t, s.dc.Close(ctx), "no rollback is attempted after commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ExecRawRunsImmediately(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockSession(t, pgx.ReadCommitted)

	mock.ExpectExec(`UPDATE mock_entities SET name = \$1`).
		WithArgs("bulk").
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectRollback()

	n, err := s.entities.ExecRaw(ctx, "UPDATE mock_entities SET name = $1", "bulk")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, s.dc.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
