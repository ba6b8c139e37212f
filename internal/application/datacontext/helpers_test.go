package datacontext_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/tinydal/internal/application/datacontext"
	"github.com/ahrav/tinydal/internal/domain/repository"
	"github.com/ahrav/tinydal/internal/infra/storage"
	"github.com/ahrav/tinydal/internal/infra/storage/sqlite"
	"github.com/ahrav/tinydal/internal/infra/storage/testutil"
)

var _ repository.Session = (*datacontext.DataContext)(nil)

var _ repository.Repository[testutil.MockMultiTenantEntity, *testutil.MockMultiTenantEntity] = (*datacontext.Repository[testutil.MockMultiTenantEntity, *testutil.MockMultiTenantEntity])(nil)

var (
	mockEntityMapping = datacontext.Mapping[testutil.MockEntity]{
		Table:   testutil.MockEntitiesTable,
		Columns: []string{"name"},
		Values:  func(e *testutil.MockEntity) []any { return []any{e.Name} },
	}
	mockDeletableMapping = datacontext.Mapping[testutil.MockDeletableEntity]{
		Table:   testutil.MockDeletableEntitiesTable,
		Columns: []string{"name"},
		Values:  func(e *testutil.MockDeletableEntity) []any { return []any{e.Name} },
	}
	mockMultiTenantMapping = datacontext.Mapping[testutil.MockMultiTenantEntity]{
		Table:   testutil.MockMultiTenantEntitiesTable,
		Columns: []string{"name"},
		Values:  func(e *testutil.MockMultiTenantEntity) []any { return []any{e.Name} },
	}
	mockUniqueMapping = datacontext.Mapping[testutil.MockUniqueEntity]{
		Table:   testutil.MockUniqueEntitiesTable,
		Columns: []string{"name"},
		Values:  func(e *testutil.MockUniqueEntity) []any { return []any{e.Name} },
	}
)

func byName(name string) squirrel.Sqlizer { return squirrel.Eq{"name": name} }

// session bundles a DataContext with one repository per fixture type.
type session struct {
	dc           *datacontext.DataContext
	entities     *datacontext.Repository[testutil.MockEntity, *testutil.MockEntity]
	deletables   *datacontext.Repository[testutil.MockDeletableEntity, *testutil.MockDeletableEntity]
	multiTenants *datacontext.Repository[testutil.MockMultiTenantEntity, *testutil.MockMultiTenantEntity]
	uniques      *datacontext.Repository[testutil.MockUniqueEntity, *testutil.MockUniqueEntity]
}

func openSession(t *testing.T, driver storage.Driver, opts ...datacontext.Option) *session {
	t.Helper()

	dc, err := datacontext.Open(context.Background(), driver, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dc.Close(context.Background()) })

	s := &session{dc: dc}
	s.entities, err = datacontext.NewRepository(dc, mockEntityMapping)
	require.NoError(t, err)
	s.deletables, err = datacontext.NewRepository(dc, mockDeletableMapping)
	require.NoError(t, err)
	s.multiTenants, err = datacontext.NewRepository(dc, mockMultiTenantMapping)
	require.NoError(t, err)
	s.uniques, err = datacontext.NewRepository(dc, mockUniqueMapping)
	require.NoError(t, err)
	return s
}

func newSQLiteDriver(t *testing.T) storage.Driver {
	t.Helper()
	// The database handle is closed by SetupSQLite's cleanup.
	return sqlite.New(testutil.SetupSQLite(t))
}

func scoped() datacontext.Option { return datacontext.WithTenant(testutil.TenantID) }

// recordingMetrics counts SessionMetrics calls.
type recordingMetrics struct {
	mu        sync.Mutex
	opened    int
	commits   int
	rollbacks map[string]int
	errors    map[string]int
	saves     []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{rollbacks: map[string]int{}, errors: map[string]int{}}
}

func (m *recordingMetrics) IncSessionsOpened(context.Context, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened++
}

func (m *recordingMetrics) IncCommits(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
}

func (m *recordingMetrics) IncRollbacks(_ context.Context, _ string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks[reason]++
}

func (m *recordingMetrics) IncStoreErrors(_ context.Context, _ string, op, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[op+"/"+kind]++
}

func (m *recordingMetrics) ObserveSaveDuration(_ context.Context, _ string, operations int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, operations)
}
