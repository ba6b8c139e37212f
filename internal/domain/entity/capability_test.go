package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/tinydal/internal/domain/entity"
)

type plainThing struct {
	entity.Entity
	Name string `db:"name"`
}

type deletableThing struct {
	entity.Deletable
	Name string `db:"name"`
}

type tenantThing struct {
	entity.MultiTenant
	Name string `db:"name"`
}

func TestCapabilityOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, entity.CapabilityPlain, entity.CapabilityOf[plainThing]())
	assert.Equal(t, entity.CapabilitySoftDeletable, entity.CapabilityOf[deletableThing]())
	assert.Equal(t, entity.CapabilityTenantScoped, entity.CapabilityOf[tenantThing]())
}

func TestCapability_Flags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		capability  entity.Capability
		softDeletes bool
		tenant      bool
		columns     []string
	}{
		{"plain", entity.CapabilityPlain, false, false, nil},
		{"soft_deletable", entity.CapabilitySoftDeletable, true, false, []string{"is_deleted"}},
		{"tenant_scoped", entity.CapabilityTenantScoped, true, true, []string{"is_deleted", "tenant_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.name, tt.capability.String())
			assert.Equal(t, tt.softDeletes, tt.capability.SoftDeletes())
			assert.Equal(t, tt.tenant, tt.capability.TenantScoped())
			assert.Equal(t, tt.columns, tt.capability.Columns())
		})
	}
}

func TestCapability_Values(t *testing.T) {
	t.Parallel()

	thing := &tenantThing{Name: "x"}
	thing.SetDeleted(true)
	thing.SetTenantID(454)
	assert.Equal(t, []any{true, int64(454)}, entity.CapabilityTenantScoped.Values(thing))

	deletable := &deletableThing{}
	assert.Equal(t, []any{false}, entity.CapabilitySoftDeletable.Values(deletable))

	assert.Nil(t, entity.CapabilityPlain.Values(&plainThing{}))
}

func TestNewEntityDefaults(t *testing.T) {
	t.Parallel()

	thing := new(tenantThing)
	assert.Zero(t, thing.GetID())
	assert.False(t, thing.Deleted())
	assert.Zero(t, thing.GetTenantID())

	thing.SetID(7)
	assert.Equal(t, int64(7), thing.ID)
}
