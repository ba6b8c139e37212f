package testutil

import "github.com/ahrav/tinydal/internal/domain/entity"

// Fixture tables created by the embedded migrations.
const (
	MockEntitiesTable            = "mock_entities"
	MockDeletableEntitiesTable   = "mock_deletable_entities"
	MockMultiTenantEntitiesTable = "mock_multi_tenant_entities"
	MockUniqueEntitiesTable      = "mock_unique_entities"
)

// TenantID is the tenant used by scoped fixture sessions.
const TenantID int64 = 454

// MockEntity is a plain record.
type MockEntity struct {
	entity.Entity
	Name string `db:"name"`
}

// MockDeletableEntity is a soft-deletable record.
type MockDeletableEntity struct {
	entity.Deletable
	Name string `db:"name"`
}

// MockMultiTenantEntity is a tenant-scoped record.
type MockMultiTenantEntity struct {
	entity.MultiTenant
	Name string `db:"name"`
}

// MockUniqueEntity is a plain record whose name carries a unique constraint.
type MockUniqueEntity struct {
	entity.Entity
	Name string `db:"name"`
}
