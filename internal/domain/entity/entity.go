// Package entity defines the capability model shared by every persisted type.
// A type opts into soft deletion or tenant scoping by embedding Deletable or
// MultiTenant; repositories resolve the resulting Capability once, when they
// are constructed.
package entity

// Canonical column names owned by the data access layer.
const (
	ColumnID        = "id"
	ColumnIsDeleted = "is_deleted"
	ColumnTenantID  = "tenant_id"
)

// Identifiable is implemented by every persisted entity.
// The ID is zero until the store assigns it on insert.
type Identifiable interface {
	GetID() int64
	SetID(id int64)
}

// SoftDeletable entities are hidden from default queries once marked deleted.
type SoftDeletable interface {
	Identifiable
	Deleted() bool
	SetDeleted(deleted bool)
}

// TenantScoped entities belong to exactly one tenant.
// Every tenant scoped entity is also soft deletable.
type TenantScoped interface {
	SoftDeletable
	GetTenantID() int64
	SetTenantID(tenantID int64)
}

// Record constrains a repository type parameter to a pointer to T that
// carries an identity.
type Record[T any] interface {
	*T
	Identifiable
}

// Entity is the embeddable base for plain entities.
type Entity struct {
	ID int64 `db:"id"`
}

func (e *Entity) GetID() int64   { return e.ID }
func (e *Entity) SetID(id int64) { e.ID = id }

// Deletable is the embeddable base for soft deletable entities.
type Deletable struct {
	Entity
	IsDeleted bool `db:"is_deleted"`
}

func (e *Deletable) Deleted() bool           { return e.IsDeleted }
func (e *Deletable) SetDeleted(deleted bool) { e.IsDeleted = deleted }

// MultiTenant is the embeddable base for tenant scoped entities.
type MultiTenant struct {
	Deletable
	TenantID int64 `db:"tenant_id"`
}

func (e *MultiTenant) GetTenantID() int64         { return e.TenantID }
func (e *MultiTenant) SetTenantID(tenantID int64) { e.TenantID = tenantID }
