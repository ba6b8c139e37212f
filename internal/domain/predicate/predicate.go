// Package predicate composes the effective filter of a repository read or
// delete from the deletion visibility rule, the tenant scope and the caller
// supplied filter.
package predicate

import (
	"github.com/Masterminds/squirrel"

	"github.com/ahrav/tinydal/internal/domain/entity"
)

// Filter is a caller supplied condition. A nil Filter matches every row.
// Placeholders are written as "?" and rewritten by the active driver.
type Filter = squirrel.Sqlizer

// Deletion returns the deletion visibility part, or nil when it is the identity.
func Deletion(c entity.Capability, manageDeletion bool) squirrel.Sqlizer {
	if !manageDeletion || !c.SoftDeletes() {
		return nil
	}
	return squirrel.Eq{entity.ColumnIsDeleted: false}
}

// Tenant returns the tenant scoping part, or nil when it is the identity.
func Tenant(c entity.Capability, tenantID *int64) squirrel.Sqlizer {
	if tenantID == nil || !c.TenantScoped() {
		return nil
	}
	return squirrel.Eq{entity.ColumnTenantID: *tenantID}
}

// Compose ANDs, in order, the deletion visibility part, the tenant part and
// filter. Identity parts are left out; an empty result matches every row.
func Compose(c entity.Capability, tenantID *int64, manageDeletion bool, filter Filter) squirrel.And {
	parts := make(squirrel.And, 0, 3)
	if p := Deletion(c, manageDeletion); p != nil {
		parts = append(parts, p)
	}
	if p := Tenant(c, tenantID); p != nil {
		parts = append(parts, p)
	}
	if filter != nil {
		parts = append(parts, filter)
	}
	return parts
}
