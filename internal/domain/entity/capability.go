package entity

// Capability is the closed set of optional behaviours an entity type opts into.
type Capability uint8

const (
	CapabilityPlain         Capability = iota // identity only
	CapabilitySoftDeletable                   // adds is_deleted
	CapabilityTenantScoped                    // adds is_deleted and tenant_id
)

// String returns the capability name used in logs and span attributes.
func (c Capability) String() string {
	switch c {
	case CapabilityPlain:
		return "plain"
	case CapabilitySoftDeletable:
		return "soft_deletable"
	case CapabilityTenantScoped:
		return "tenant_scoped"
	default:
		return "unknown"
	}
}

// SoftDeletes reports whether rows of this capability have an is_deleted column.
func (c Capability) SoftDeletes() bool {
	return c == CapabilitySoftDeletable || c == CapabilityTenantScoped
}

// TenantScoped reports whether rows of this capability have a tenant_id column.
func (c Capability) TenantScoped() bool { return c == CapabilityTenantScoped }

// Columns returns the capability owned columns in write order.
func (c Capability) Columns() []string {
	switch c {
	case CapabilityTenantScoped:
		return []string{ColumnIsDeleted, ColumnTenantID}
	case CapabilitySoftDeletable:
		return []string{ColumnIsDeleted}
	default:
		return nil
	}
}

// Values returns the capability owned column values of e, aligned with Columns.
func (c Capability) Values(e Identifiable) []any {
	switch c {
	case CapabilityTenantScoped:
		t := e.(TenantScoped)
		return []any{t.Deleted(), t.GetTenantID()}
	case CapabilitySoftDeletable:
		return []any{e.(SoftDeletable).Deleted()}
	default:
		return nil
	}
}

// CapabilityOf resolves the capability of the entity type T.
// It inspects the type once; callers cache the result.
func CapabilityOf[T any, PT Record[T]]() Capability {
	var probe any = PT(new(T))
	switch probe.(type) {
	case TenantScoped:
		return CapabilityTenantScoped
	case SoftDeletable:
		return CapabilitySoftDeletable
	default:
		return CapabilityPlain
	}
}
