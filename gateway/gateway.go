// Package gateway provides table gateway operations for any row type described
// by a schema: selects, single and bulk inserts, upserts and deletes.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/code19m/errx"
	"github.com/samber/lo"

	"github.com/rise-and-shine/pgbulk/bulk"
	"github.com/rise-and-shine/pgbulk/schema"
)

// Table is the gateway for one table.
type Table[T any] struct {
	schema *schema.Schema[T]
	writer *bulk.Writer[T]

	selectStmt string
	insertStmt string
	deleteStmt string
}

// New builds a gateway for s. opts configure the underlying bulk writer.
func New[T any](s *schema.Schema[T], opts ...bulk.Option) (*Table[T], error) {
	w, err := bulk.NewWriter(s, opts...)
	if err != nil {
		return nil, err
	}

	quoted := lo.Map(s.Names(), func(n string, _ int) string { return schema.QuoteIdent(n) })
	insertCols := s.InsertColumns()
	insertNames := lo.Map(insertCols, func(c schema.Column, _ int) string { return schema.QuoteIdent(c.Name) })
	placeholders := lo.Map(insertCols, func(_ schema.Column, i int) string { return fmt.Sprintf("$%d", i+1) })

	return &Table[T]{
		schema: s,
		writer: w,
		selectStmt: fmt.Sprintf("SELECT %s FROM %s",
			strings.Join(quoted, ", "), s.QuotedTable()),
		insertStmt: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			s.QuotedTable(), strings.Join(insertNames, ", "), strings.Join(placeholders, ", ")),
		deleteStmt: "DELETE FROM " + s.QuotedTable(),
	}, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](s *schema.Schema[T], opts ...bulk.Option) *Table[T] {
	t, err := New(s, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Schema returns the table schema.
func (t *Table[T]) Schema() *schema.Schema[T] {
	return t.schema
}

// Writer returns the bulk writer used by BulkInsert and BulkUpsert.
func (t *Table[T]) Writer() *bulk.Writer[T] {
	return t.writer
}

// SelectAll returns every row of the table.
func (t *Table[T]) SelectAll(ctx context.Context, q bulk.Querier) ([]T, error) {
	return t.SelectWhere(ctx, q)
}

// SelectWhere returns the rows matching all conds.
func (t *Table[T]) SelectWhere(ctx context.Context, q bulk.Querier, conds ...Cond) ([]T, error) {
	return t.Select(ctx, q, Query{Where: conds})
}

// Query describes a select: conditions joined with AND, ordering and an
// optional LIMIT/OFFSET window. Zero Limit means no limit.
type Query struct {
	Where   []Cond
	OrderBy []Order
	Limit   int
	Offset  int
}

// Select returns the rows described by query.
func (t *Table[T]) Select(ctx context.Context, q bulk.Querier, query Query) ([]T, error) {
	stmt, args, err := t.buildSelect(query)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, t.queryFailed(err, stmt)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var row T
		if err = rows.Scan(t.schema.ScanTargets(&row)...); err != nil {
			return nil, t.queryFailed(err, stmt)
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, t.queryFailed(err, stmt)
	}

	return out, nil
}

func (t *Table[T]) buildSelect(query Query) (string, []any, error) {
	if query.Limit < 0 || query.Offset < 0 {
		return "", nil, errx.New(
			"[gateway]: limit and offset must not be negative",
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"limit": query.Limit, "offset": query.Offset}),
		)
	}

	where, args, err := buildWhere(t.schema, query.Where, nil)
	if err != nil {
		return "", nil, err
	}
	orderBy, err := buildOrderBy(t.schema, query.OrderBy)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString(t.selectStmt + where + orderBy)
	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args, nil
}

// BasicInsert inserts a single row with INSERT ... VALUES and returns the affected count.
func (t *Table[T]) BasicInsert(ctx context.Context, q bulk.Querier, row T) (int64, error) {
	n, err := q.Exec(ctx, t.insertStmt, t.schema.Values(row, t.schema.InsertColumns())...)
	if err != nil {
		return 0, t.queryFailed(err, t.insertStmt)
	}
	return n, nil
}

// BulkInsert inserts rows in chunks. See bulk.Writer.Insert.
func (t *Table[T]) BulkInsert(ctx context.Context, q bulk.Querier, rows []T) (bulk.Result, error) {
	return t.writer.Insert(ctx, q, rows)
}

// BulkUpsert upserts rows in chunks. See bulk.Writer.Upsert.
func (t *Table[T]) BulkUpsert(ctx context.Context, q bulk.Querier, rows []T) (bulk.Result, error) {
	return t.writer.Upsert(ctx, q, rows)
}

// BulkInsertReturning inserts rows in chunks and pairs them with their generated ids.
func BulkInsertReturning[T, K any](
	ctx context.Context,
	t *Table[T],
	q bulk.Querier,
	rows []T,
) ([]bulk.Entry[T, K], bulk.Result, error) {
	return bulk.InsertReturning[T, K](ctx, t.writer, q, rows)
}

// BulkUpsertReturning upserts rows in chunks and pairs them with their ids.
func BulkUpsertReturning[T, K any](
	ctx context.Context,
	t *Table[T],
	q bulk.Querier,
	rows []T,
) ([]bulk.Entry[T, K], bulk.Result, error) {
	return bulk.UpsertReturning[T, K](ctx, t.writer, q, rows)
}

// DeleteAll deletes every row and returns the number deleted.
func (t *Table[T]) DeleteAll(ctx context.Context, q bulk.Querier) (int64, error) {
	n, err := q.Exec(ctx, t.deleteStmt)
	if err != nil {
		return 0, t.queryFailed(err, t.deleteStmt)
	}
	return n, nil
}

// CreateTable creates the table if it does not exist.
func (t *Table[T]) CreateTable(ctx context.Context, q bulk.Querier) error {
	stmt := t.schema.CreateTableStatement()
	if _, err := q.Exec(ctx, stmt); err != nil {
		return t.queryFailed(err, stmt)
	}
	return nil
}

func (t *Table[T]) queryFailed(err error, stmt string) error {
	return errx.Wrap(err,
		errx.WithCode(CodeQueryFailed),
		errx.WithDetails(errx.D{"table": t.schema.Table(), "statement": stmt}),
	)
}
