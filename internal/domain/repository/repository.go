// Package repository declares the contracts between callers and the data
// access layer: a Session owning one transaction and a generic Repository
// bound to it.
package repository

import (
	"context"

	"github.com/ahrav/tinydal/internal/domain/entity"
	"github.com/ahrav/tinydal/internal/domain/predicate"
	"github.com/ahrav/tinydal/pkg/common/async"
)

// Session owns a single transaction and the tenant identity it operates under.
type Session interface {
	// ID uniquely identifies the session in logs and traces.
	ID() string

	// TenantID returns the session tenant, or nil when the session is unscoped.
	TenantID() *int64

	// Save flushes every staged operation into the transaction without finalizing it.
	Save(ctx context.Context) error
	SaveAsync(ctx context.Context) *async.Future[struct{}]

	// Commit makes previously saved effects durable.
	Commit(ctx context.Context) error
	CommitAsync(ctx context.Context) *async.Future[struct{}]

	// Rollback discards staged and saved effects.
	Rollback(ctx context.Context) error
	RollbackAsync(ctx context.Context) *async.Future[struct{}]

	// Close releases the transaction. Calling it more than once is safe.
	Close(ctx context.Context) error
}

// Repository is the CRUD surface for one entity type.
// Reads and filtered deletes apply the deletion visibility rule and the
// session tenant scope on top of the supplied filter.
type Repository[T any, PT entity.Record[T]] interface {
	// FindOneBy returns the first matching row, or nil when nothing matches.
	FindOneBy(ctx context.Context, filter predicate.Filter, opts ...FindOption) (PT, error)
	FindOneByAsync(ctx context.Context, filter predicate.Filter, opts ...FindOption) *async.Future[PT]

	// FindManyBy returns every matching row in store order.
	FindManyBy(ctx context.Context, filter predicate.Filter, opts ...FindOption) ([]PT, error)
	FindManyByAsync(ctx context.Context, filter predicate.Filter, opts ...FindOption) *async.Future[[]PT]

	// Insert stages the entities for creation, assigning the session tenant
	// to tenant scoped entities that have none.
	Insert(ctx context.Context, entities ...PT) error
	InsertAsync(ctx context.Context, entities ...PT) *async.Future[struct{}]

	// Update stages a full update of the entities.
	Update(ctx context.Context, entities ...PT) error
	UpdateAsync(ctx context.Context, entities ...PT) *async.Future[struct{}]

	// Delete stages the physical removal of the entities.
	Delete(ctx context.Context, entities ...PT) error
	DeleteAsync(ctx context.Context, entities ...PT) *async.Future[struct{}]

	// DeleteByID stages the removal of the row with the given id without reading it.
	DeleteByID(ctx context.Context, id int64) error
	DeleteByIDAsync(ctx context.Context, id int64) *async.Future[struct{}]

	// DeleteBy stages the removal of the first matching row. No match is a no-op.
	DeleteBy(ctx context.Context, filter predicate.Filter, opts ...FindOption) error
	DeleteByAsync(ctx context.Context, filter predicate.Filter, opts ...FindOption) *async.Future[struct{}]

	// DeleteManyBy stages the removal of every matching row.
	DeleteManyBy(ctx context.Context, filter predicate.Filter, opts ...FindOption) error
	DeleteManyByAsync(ctx context.Context, filter predicate.Filter, opts ...FindOption) *async.Future[struct{}]

	// ExecRaw runs a statement in the session transaction immediately and
	// returns the number of affected rows. No predicate is composed.
	ExecRaw(ctx context.Context, query string, args ...any) (int64, error)
	ExecRawAsync(ctx context.Context, query string, args ...any) *async.Future[int64]
}
