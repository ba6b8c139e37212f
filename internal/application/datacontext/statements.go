package datacontext

import (
	"github.com/Masterminds/squirrel"

	"github.com/ahrav/tinydal/internal/domain/entity"
)

// statementBuilder renders predicates and writes with the driver's placeholders.
type statementBuilder struct {
	sb squirrel.StatementBuilderType
}

func newStatementBuilder(ph squirrel.PlaceholderFormat) statementBuilder {
	return statementBuilder{sb: squirrel.StatementBuilder.PlaceholderFormat(ph)}
}

func (b statementBuilder) selectRows(table string, columns []string, where squirrel.And, limit uint64) (string, []any, error) {
	q := b.sb.Select(columns...).From(table)
	if len(where) > 0 {
		q = q.Where(where)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q.ToSql()
}

func (b statementBuilder) insert(table string, columns []string, values []any) (string, []any, error) {
	return b.sb.Insert(table).
		Columns(columns...).
		Values(values...).
		Suffix("RETURNING " + entity.ColumnID).
		ToSql()
}

func (b statementBuilder) update(table string, columns []string, values []any, key squirrel.Eq) (string, []any, error) {
	q := b.sb.Update(table)
	for i, col := range columns {
		q = q.Set(col, values[i])
	}
	return q.Where(key).ToSql()
}

func (b statementBuilder) delete(table string, key squirrel.Eq) (string, []any, error) {
	return b.sb.Delete(table).Where(key).ToSql()
}
