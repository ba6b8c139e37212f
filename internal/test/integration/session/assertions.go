package session

import (
	"context"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/tinydal/internal/application/datacontext"
	"github.com/ahrav/tinydal/internal/domain/repository"
	"github.com/ahrav/tinydal/internal/infra/storage"
	"github.com/ahrav/tinydal/internal/infra/storage/testutil"
)

// MultiTenantMapping maps testutil.MockMultiTenantEntity.
var MultiTenantMapping = datacontext.Mapping[testutil.MockMultiTenantEntity]{
	Table:   testutil.MockMultiTenantEntitiesTable,
	Columns: []string{"name"},
	Values:  func(e *testutil.MockMultiTenantEntity) []any { return []any{e.Name} },
}

// UniqueMapping maps testutil.MockUniqueEntity.
var UniqueMapping = datacontext.Mapping[testutil.MockUniqueEntity]{
	Table:   testutil.MockUniqueEntitiesTable,
	Columns: []string{"name"},
	Values:  func(e *testutil.MockUniqueEntity) []any { return []any{e.Name} },
}

// NewMultiTenantRepository binds a multi tenant repository to dc.
func NewMultiTenantRepository(
	t *testing.T,
	dc *datacontext.DataContext,
) *datacontext.Repository[testutil.MockMultiTenantEntity, *testutil.MockMultiTenantEntity] {
	t.Helper()
	repo, err := datacontext.NewRepository(dc, MultiTenantMapping)
	require.NoError(t, err)
	return repo
}

// AssertNameCount opens a read only session and checks how many rows named
// name are visible to it.
func AssertNameCount(
	t *testing.T,
	ctx context.Context,
	driver storage.Driver,
	name string,
	expected int,
	opts ...datacontext.Option,
) {
	t.Helper()

	dc, err := datacontext.Open(ctx, driver, opts...)
	require.NoError(t, err)
	defer func() { require.NoError(t, dc.Close(ctx)) }()

	found, err := NewMultiTenantRepository(t, dc).FindManyBy(ctx, squirrel.Eq{"name": name}, repository.ReadOnly())
	require.NoError(t, err)
	require.Len(t, found, expected, "rows named %q", name)
}
