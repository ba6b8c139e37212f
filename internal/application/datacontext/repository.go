package datacontext

import (
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/tinydal/internal/domain/entity"
	"github.com/ahrav/tinydal/internal/domain/predicate"
	"github.com/ahrav/tinydal/internal/domain/repository"
	"github.com/ahrav/tinydal/internal/infra/storage"
	"github.com/ahrav/tinydal/pkg/common/async"
)

// Mapping describes how an entity type is stored.
type Mapping[T any] struct {
	// Table is the table holding the entity rows.
	Table string
	// Columns lists the entity's own columns in write order. The id column and
	// the capability columns (is_deleted, tenant_id) are added by the repository
	// and must not be listed.
	Columns []string
	// Values returns the values of Columns for one entity, in the same order.
	Values func(*T) []any
}

func (m Mapping[T]) validate() error {
	if m.Table == "" {
		return fmt.Errorf("%w: table is required", ErrInvalidMapping)
	}
	if m.Values == nil {
		return fmt.Errorf("%w: %s: values func is required", ErrInvalidMapping, m.Table)
	}
	for _, col := range m.Columns {
		switch col {
		case entity.ColumnID, entity.ColumnIsDeleted, entity.ColumnTenantID:
			return fmt.Errorf("%w: %s: column %q is managed by the repository", ErrInvalidMapping, m.Table, col)
		}
	}
	return nil
}

// Repository is the session bound CRUD surface for one entity type.
type Repository[T any, PT entity.Record[T]] struct {
	dc         *DataContext
	mapping    Mapping[T]
	capability entity.Capability
	tenantID   *int64
	// selectColumns and writeColumns are fixed at construction.
	selectColumns []string
	writeColumns  []string
}

// NewRepository binds a repository for T to dc. The entity capability is
// resolved here once and the repository inherits the session tenant.
func NewRepository[T any, PT entity.Record[T]](dc *DataContext, m Mapping[T]) (*Repository[T, PT], error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	capability := entity.CapabilityOf[T, PT]()

	writeColumns := slices.Concat(m.Columns, capability.Columns())
	selectColumns := slices.Concat([]string{entity.ColumnID}, writeColumns)

	return &Repository[T, PT]{
		dc:            dc,
		mapping:       m,
		capability:    capability,
		tenantID:      dc.TenantID(),
		selectColumns: selectColumns,
		writeColumns:  writeColumns,
	}, nil
}

// Capability returns the capability resolved for T.
func (r *Repository[T, PT]) Capability() entity.Capability { return r.capability }

// Table returns the mapped table.
func (r *Repository[T, PT]) Table() string { return r.mapping.Table }

// FindOneBy returns the first row matching filter, or nil when none does.
func (r *Repository[T, PT]) FindOneBy(ctx context.Context, filter predicate.Filter, opts ...repository.FindOption) (PT, error) {
	return r.FindOneByAsync(ctx, filter, opts...).Await()
}

func (r *Repository[T, PT]) FindOneByAsync(ctx context.Context, filter predicate.Filter, opts ...repository.FindOption) *async.Future[PT] {
	o := repository.ApplyFindOptions(opts...)
	return submit(r.dc, ctx, func(ctx context.Context) (PT, error) {
		return r.findOne(ctx, filter, o)
	})
}

// FindManyBy returns every row matching filter in store order.
func (r *Repository[T, PT]) FindManyBy(ctx context.Context, filter predicate.Filter, opts ...repository.FindOption) ([]PT, error) {
	return r.FindManyByAsync(ctx, filter, opts...).Await()
}

func (r *Repository[T, PT]) FindManyByAsync(ctx context.Context, filter predicate.Filter, opts ...repository.FindOption) *async.Future[[]PT] {
	o := repository.ApplyFindOptions(opts...)
	return submit(r.dc, ctx, func(ctx context.Context) ([]PT, error) {
		return r.find(ctx, filter, o, 0)
	})
}

func (r *Repository[T, PT]) findOne(ctx context.Context, filter predicate.Filter, o repository.FindOptions) (PT, error) {
	found, err := r.find(ctx, filter, o, 1)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

func (r *Repository[T, PT]) find(ctx context.Context, filter predicate.Filter, o repository.FindOptions, limit uint64) ([]PT, error) {
	where := predicate.Compose(r.capability, r.tenantID, !o.PreventDeletionManagement, filter)
	query, args, err := r.dc.builder.selectRows(r.mapping.Table, r.selectColumns, where, limit)
	if err != nil {
		return nil, fmt.Errorf("building select for %s: %w", r.mapping.Table, err)
	}

	var rows []T
	err = storage.ExecuteAndTrace(ctx, r.dc.tracer, "datacontext.Find", r.attributes(
		attribute.Bool("read_only", o.ReadOnly),
		attribute.Bool("deletion_managed", !o.PreventDeletionManagement),
	), func(ctx context.Context) error {
		return r.dc.tx.Select(ctx, &rows, query, args...)
	})
	if err != nil {
		r.dc.metrics.IncStoreErrors(ctx, r.dc.driver.Name(), "select", storage.KindName(err))
		return nil, fmt.Errorf("finding %s: %w", r.mapping.Table, err)
	}

	out := make([]PT, 0, len(rows))
	for i := range rows {
		e := PT(&rows[i])
		if !o.ReadOnly {
			e = r.track(e)
		}
		out = append(out, e)
	}
	return out, nil
}

// track returns the instance already attached for e's id, attaching e when
// there is none.
func (r *Repository[T, PT]) track(e PT) PT {
	if existing, ok := r.dc.tracker.lookup(r.mapping.Table, e.GetID()); ok {
		if tracked, ok := existing.(PT); ok {
			return tracked
		}
	}
	r.dc.tracker.attach(r.mapping.Table, e.GetID(), e)
	return e
}

// Insert stages entities for creation. Tenant scoped entities without a
// tenant receive the session tenant. IDs are assigned on Save.
func (r *Repository[T, PT]) Insert(ctx context.Context, entities ...PT) error {
	return r.InsertAsync(ctx, entities...).Err()
}

func (r *Repository[T, PT]) InsertAsync(ctx context.Context, entities ...PT) *async.Future[struct{}] {
	entities = slices.Clone(entities)
	return submitErr(r.dc, ctx, func(ctx context.Context) error {
		if err := r.checkNotNil(entities); err != nil {
			return err
		}
		for _, e := range entities {
			r.assignTenant(e)
			r.stage(ctx, opInsert, e, r.insertOp(e))
		}
		return nil
	})
}

func (r *Repository[T, PT]) assignTenant(e PT) {
	if r.tenantID == nil || !r.capability.TenantScoped() {
		return
	}
	if t := any(e).(entity.TenantScoped); t.GetTenantID() == 0 {
		t.SetTenantID(*r.tenantID)
	}
}

func (r *Repository[T, PT]) insertOp(e PT) func(ctx context.Context, tx storage.Tx) error {
	return func(ctx context.Context, tx storage.Tx) error {
		values, err := r.values(e)
		if err != nil {
			return err
		}
		query, args, err := r.dc.builder.insert(r.mapping.Table, r.writeColumns, values)
		if err != nil {
			return err
		}
		id, err := tx.InsertReturningID(ctx, query, args...)
		if err != nil {
			return err
		}
		e.SetID(id)
		r.dc.tracker.attach(r.mapping.Table, id, e)
		return nil
	}
}

// Update stages a full row update for each entity. Under a scoped session a
// tenant scoped entity owned by another tenant is rejected and nothing is staged.
func (r *Repository[T, PT]) Update(ctx context.Context, entities ...PT) error {
	return r.UpdateAsync(ctx, entities...).Err()
}

func (r *Repository[T, PT]) UpdateAsync(ctx context.Context, entities ...PT) *async.Future[struct{}] {
	entities = slices.Clone(entities)
	return submitErr(r.dc, ctx, func(ctx context.Context) error {
		if err := r.checkNotNil(entities); err != nil {
			return err
		}
		if r.tenantID != nil && r.capability.TenantScoped() {
			for _, e := range entities {
				owner := any(e).(entity.TenantScoped).GetTenantID()
				if owner != 0 && owner != *r.tenantID {
					return fmt.Errorf("%w: %s id %d has tenant %d, session tenant is %d",
						ErrTenantMismatch, r.mapping.Table, e.GetID(), owner, *r.tenantID)
				}
			}
		}
		for _, e := range entities {
			r.assignTenant(e)
			r.stage(ctx, opUpdate, e, r.updateOp(e))
		}
		return nil
	})
}

func (r *Repository[T, PT]) updateOp(e PT) func(ctx context.Context, tx storage.Tx) error {
	return func(ctx context.Context, tx storage.Tx) error {
		values, err := r.values(e)
		if err != nil {
			return err
		}
		query, args, err := r.dc.builder.update(r.mapping.Table, r.writeColumns, values, r.key(e.GetID()))
		if err != nil {
			return err
		}
		return r.execKeyed(ctx, tx, "update", e.GetID(), query, args)
	}
}

// Delete stages the physical removal of each entity by key.
func (r *Repository[T, PT]) Delete(ctx context.Context, entities ...PT) error {
	return r.DeleteAsync(ctx, entities...).Err()
}

func (r *Repository[T, PT]) DeleteAsync(ctx context.Context, entities ...PT) *async.Future[struct{}] {
	entities = slices.Clone(entities)
	return submitErr(r.dc, ctx, func(ctx context.Context) error {
		if err := r.checkNotNil(entities); err != nil {
			return err
		}
		r.stageDeletes(ctx, entities)
		return nil
	})
}

func (r *Repository[T, PT]) stageDeletes(ctx context.Context, entities []PT) {
	for _, e := range entities {
		r.stage(ctx, opDelete, e, r.deleteOp(e))
	}
}

func (r *Repository[T, PT]) deleteOp(e PT) func(ctx context.Context, tx storage.Tx) error {
	return func(ctx context.Context, tx storage.Tx) error {
		id := e.GetID()
		query, args, err := r.dc.builder.delete(r.mapping.Table, r.key(id))
		if err != nil {
			return err
		}
		if err := r.execKeyed(ctx, tx, "delete", id, query, args); err != nil {
			return err
		}
		r.dc.tracker.detach(r.mapping.Table, id)
		return nil
	}
}

// DeleteByID stages the removal of the row with id without reading it. The
// tracked instance is used when there is one, otherwise a stub carrying only
// the id.
func (r *Repository[T, PT]) DeleteByID(ctx context.Context, id int64) error {
	return r.DeleteByIDAsync(ctx, id).Err()
}

func (r *Repository[T, PT]) DeleteByIDAsync(ctx context.Context, id int64) *async.Future[struct{}] {
	return submitErr(r.dc, ctx, func(ctx context.Context) error {
		var target PT
		if existing, ok := r.dc.tracker.lookup(r.mapping.Table, id); ok {
			target, _ = existing.(PT)
		}
		if target == nil {
			target = PT(new(T))
			target.SetID(id)
		}
		r.stage(ctx, opDelete, target, r.deleteOp(target))
		return nil
	})
}

// DeleteBy stages the removal of the first row matching filter. Finding no
// row stages nothing.
func (r *Repository[T, PT]) DeleteBy(ctx context.Context, filter predicate.Filter, opts ...repository.FindOption) error {
	return r.DeleteByAsync(ctx, filter, opts...).Err()
}

func (r *Repository[T, PT]) DeleteByAsync(ctx context.Context, filter predicate.Filter, opts ...repository.FindOption) *async.Future[struct{}] {
	o := deleteFindOptions(opts)
	return submitErr(r.dc, ctx, func(ctx context.Context) error {
		found, err := r.findOne(ctx, filter, o)
		if err != nil {
			return err
		}
		if found == nil {
			r.dc.logger.Debug(ctx, "delete by filter matched nothing", "table", r.mapping.Table)
			return nil
		}
		r.stageDeletes(ctx, []PT{found})
		return nil
	})
}

// DeleteManyBy stages the removal of every row matching filter.
func (r *Repository[T, PT]) DeleteManyBy(ctx context.Context, filter predicate.Filter, opts ...repository.FindOption) error {
	return r.DeleteManyByAsync(ctx, filter, opts...).Err()
}

func (r *Repository[T, PT]) DeleteManyByAsync(ctx context.Context, filter predicate.Filter, opts ...repository.FindOption) *async.Future[struct{}] {
	o := deleteFindOptions(opts)
	return submitErr(r.dc, ctx, func(ctx context.Context) error {
		found, err := r.find(ctx, filter, o, 0)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			r.dc.logger.Debug(ctx, "delete by filter matched nothing", "table", r.mapping.Table)
			return nil
		}
		r.stageDeletes(ctx, found)
		return nil
	})
}

// deleteFindOptions keeps the caller's deletion option; located rows are
// always tracked.
func deleteFindOptions(opts []repository.FindOption) repository.FindOptions {
	o := repository.ApplyFindOptions(opts...)
	o.ReadOnly = false
	return o
}

// ExecRaw runs a statement in the session transaction immediately. See
// DataContext.ExecRaw.
func (r *Repository[T, PT]) ExecRaw(ctx context.Context, query string, args ...any) (int64, error) {
	return r.dc.ExecRaw(ctx, query, args...)
}

func (r *Repository[T, PT]) ExecRawAsync(ctx context.Context, query string, args ...any) *async.Future[int64] {
	return r.dc.ExecRawAsync(ctx, query, args...)
}

func (r *Repository[T, PT]) checkNotNil(entities []PT) error {
	for i, e := range entities {
		if e == nil {
			return fmt.Errorf("%w: %s entry %d of %d", ErrNilEntity, r.mapping.Table, i+1, len(entities))
		}
	}
	return nil
}

func (r *Repository[T, PT]) stage(ctx context.Context, kind opKind, e PT, run func(context.Context, storage.Tx) error) {
	r.dc.tracker.stage(stagedOp{kind: kind, table: r.mapping.Table, run: run})
	r.dc.logger.Debug(ctx, "staged operation", "operation", kind.String(), "table", r.mapping.Table, "id", e.GetID())
}

// values returns the write column values of e aligned with writeColumns.
func (r *Repository[T, PT]) values(e PT) ([]any, error) {
	own := r.mapping.Values((*T)(e))
	if len(own) != len(r.mapping.Columns) {
		return nil, fmt.Errorf("%w: %s: values func returned %d values for %d columns",
			ErrInvalidMapping, r.mapping.Table, len(own), len(r.mapping.Columns))
	}
	return slices.Concat(own, r.capability.Values(e)), nil
}

// key identifies the row of id, guarded by the session tenant for tenant
// scoped types.
func (r *Repository[T, PT]) key(id int64) squirrel.Eq {
	key := squirrel.Eq{entity.ColumnID: id}
	if r.tenantID != nil && r.capability.TenantScoped() {
		key[entity.ColumnTenantID] = *r.tenantID
	}
	return key
}

// execKeyed runs a statement that must touch exactly the row of id.
func (r *Repository[T, PT]) execKeyed(ctx context.Context, tx storage.Tx, op string, id int64, query string, args []any) error {
	n, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return &storage.Error{Op: fmt.Sprintf("%s %s id %d", op, r.mapping.Table, id), Kind: storage.ErrRowNotFound}
	}
	return nil
}

func (r *Repository[T, PT]) attributes(extra ...attribute.KeyValue) []attribute.KeyValue {
	return r.dc.spanAttributes(append([]attribute.KeyValue{
		attribute.String("db.sql.table", r.mapping.Table),
		attribute.String("entity.capability", r.capability.String()),
	}, extra...)...)
}
