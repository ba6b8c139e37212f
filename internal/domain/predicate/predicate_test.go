package predicate_test

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/tinydal/internal/domain/entity"
	"github.com/ahrav/tinydal/internal/domain/predicate"
)

func tenant(id int64) *int64 { return &id }

func TestCompose(t *testing.T) {
	t.Parallel()

	byName := squirrel.Eq{"name": "Name"}

	tests := []struct {
		name           string
		capability     entity.Capability
		tenantID       *int64
		manageDeletion bool
		filter         predicate.Filter
		wantSQL        string
		wantArgs       []any
	}{
		{
			name:           "tenant scoped with tenant and deletion management",
			capability:     entity.CapabilityTenantScoped,
			tenantID:       tenant(454),
			manageDeletion: true,
			filter:         byName,
			wantSQL:        "(is_deleted = ? AND tenant_id = ? AND name = ?)",
			wantArgs:       []any{false, int64(454), "Name"},
		},
		{
			name:           "tenant scoped unscoped session",
			capability:     entity.CapabilityTenantScoped,
			manageDeletion: true,
			filter:         byName,
			wantSQL:        "(is_deleted = ? AND name = ?)",
			wantArgs:       []any{false, "Name"},
		},
		{
			name:       "tenant scoped deletion management suppressed",
			capability: entity.CapabilityTenantScoped,
			tenantID:   tenant(454),
			filter:     byName,
			wantSQL:    "(tenant_id = ? AND name = ?)",
			wantArgs:   []any{int64(454), "Name"},
		},
		{
			name:           "soft deletable ignores tenant",
			capability:     entity.CapabilitySoftDeletable,
			tenantID:       tenant(454),
			manageDeletion: true,
			filter:         byName,
			wantSQL:        "(is_deleted = ? AND name = ?)",
			wantArgs:       []any{false, "Name"},
		},
		{
			name:           "plain passes through caller filter",
			capability:     entity.CapabilityPlain,
			tenantID:       tenant(454),
			manageDeletion: true,
			filter:         byName,
			wantSQL:        "(name = ?)",
			wantArgs:       []any{"Name"},
		},
		{
			name:           "nil filter keeps scoping parts",
			capability:     entity.CapabilityTenantScoped,
			tenantID:       tenant(1),
			manageDeletion: true,
			wantSQL:        "(is_deleted = ? AND tenant_id = ?)",
			wantArgs:       []any{false, int64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sql, args, err := predicate.Compose(tt.capability, tt.tenantID, tt.manageDeletion, tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCompose_Empty(t *testing.T) {
	t.Parallel()

	parts := predicate.Compose(entity.CapabilityPlain, nil, true, nil)
	assert.Empty(t, parts)
}

func TestDeletionAndTenant_Identity(t *testing.T) {
	t.Parallel()

	assert.Nil(t, predicate.Deletion(entity.CapabilityPlain, true))
	assert.Nil(t, predicate.Deletion(entity.CapabilityTenantScoped, false))
	assert.Nil(t, predicate.Tenant(entity.CapabilityTenantScoped, nil))
	assert.Nil(t, predicate.Tenant(entity.CapabilitySoftDeletable, tenant(3)))
}
