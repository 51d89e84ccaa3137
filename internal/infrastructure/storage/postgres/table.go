package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cannapos/internal/core/apperror"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Table maps a record type with an int64 "id" column onto one table.
type Table[T any] struct {
	txm    *TxManager
	name   string
	entity string
	cols   []string
}

// NewTable creates a table helper. entity names the record in not-found
// errors.
func NewTable[T any](txm *TxManager, name, entity string) *Table[T] {
	return &Table[T]{txm: txm, name: name, entity: entity, cols: Columns[T]()}
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// Select starts a query over every mapped column.
func (t *Table[T]) Select() squirrel.SelectBuilder {
	return Builder().Select(t.cols...).From(t.name)
}

// Get loads the row with id.
func (t *Table[T]) Get(ctx context.Context, id int64) (*T, error) {
	row, err := t.First(ctx, t.Select().Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperror.NewNotFound(t.entity, id)
	}
	return row, nil
}

// First returns the first matching row, or nil.
func (t *Table[T]) First(ctx context.Context, q squirrel.SelectBuilder) (*T, error) {
	rows, err := t.List(ctx, q.Limit(1))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// List returns every matching row.
func (t *Table[T]) List(ctx context.Context, q squirrel.SelectBuilder) ([]*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", t.name, err)
	}
	var rows []*T
	if err := pgxscan.Select(ctx, t.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	return rows, nil
}

// Count returns the number of rows matching where.
func (t *Table[T]) Count(ctx context.Context, where squirrel.Sqlizer) (int, error) {
	sql, args, err := Builder().Select("COUNT(*)").From(t.name).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", t.name, err)
	}
	var n int
	if err := t.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// Insert writes v without its id and returns the generated id.
func (t *Table[T]) Insert(ctx context.Context, v *T) (int64, error) {
	sql, args, err := Builder().Insert(t.name).
		SetMap(ToMap(v, "id")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert %s: %w", t.name, err)
	}
	var id int64
	if err := t.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.name, MapError(err))
	}
	return id, nil
}

// Update overwrites every column of the row with id except id and created_at.
func (t *Table[T]) Update(ctx context.Context, id int64, v *T) error {
	return t.Exec(ctx, t.updateQuery(id, v), id)
}

func (t *Table[T]) updateQuery(id int64, v *T) squirrel.UpdateBuilder {
	return Builder().Update(t.name).
		SetMap(ToMap(v, "id", "created_at")).
		Where(squirrel.Eq{"id": id})
}

// Delete removes rows matching where.
func (t *Table[T]) Delete(ctx context.Context, where squirrel.Sqlizer) error {
	sql, args, err := Builder().Delete(t.name).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", t.name, err)
	}
	if _, err := t.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", t.name, MapError(err))
	}
	return nil
}

// Exec runs q and reports not-found when it touched no row and id is
// non-zero.
func (t *Table[T]) Exec(ctx context.Context, q squirrel.Sqlizer, id any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s statement: %w", t.name, err)
	}
	tag, err := t.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("exec %s: %w", t.name, MapError(err))
	}
	if id != nil && tag.RowsAffected() == 0 {
		return apperror.NewNotFound(t.entity, id)
	}
	return nil
}
