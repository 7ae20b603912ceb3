package gateway

import (
	"fmt"
	"strings"

	"github.com/rise-and-shine/pgbulk/schema"
)

type operator string

const (
	opEq        operator = "="
	opNe        operator = "<>"
	opGt        operator = ">"
	opGte       operator = ">="
	opLt        operator = "<"
	opLte       operator = "<="
	opBetween   operator = "BETWEEN"
	opIsNull    operator = "IS NULL"
	opIsNotNull operator = "IS NOT NULL"
	opIn        operator = "IN"
)

// Cond is one predicate of a WHERE clause. Conditions passed together are
// joined with AND. Values are always bound as parameters.
type Cond struct {
	column string
	op     operator
	values []any
}

// Eq matches rows where column = value.
func Eq(column string, value any) Cond { return Cond{column: column, op: opEq, values: []any{value}} }

// Ne matches rows where column <> value.
func Ne(column string, value any) Cond { return Cond{column: column, op: opNe, values: []any{value}} }

// Gt matches rows where column > value.
func Gt(column string, value any) Cond { return Cond{column: column, op: opGt, values: []any{value}} }

// Gte matches rows where column >= value.
func Gte(column string, value any) Cond { return Cond{column: column, op: opGte, values: []any{value}} }

// Lt matches rows where column < value.
func Lt(column string, value any) Cond { return Cond{column: column, op: opLt, values: []any{value}} }

// Lte matches rows where column <= value.
func Lte(column string, value any) Cond { return Cond{column: column, op: opLte, values: []any{value}} }

// Between matches rows where low <= column <= high.
func Between(column string, low, high any) Cond {
	return Cond{column: column, op: opBetween, values: []any{low, high}}
}

// IsNull matches rows where column is NULL.
func IsNull(column string) Cond { return Cond{column: column, op: opIsNull} }

// IsNotNull matches rows where column is not NULL.
func IsNotNull(column string) Cond { return Cond{column: column, op: opIsNotNull} }

// In matches rows where column equals one of values. No values matches nothing.
func In(column string, values ...any) Cond { return Cond{column: column, op: opIn, values: values} }

// buildWhere renders conds as a WHERE clause. Placeholders continue after args.
func buildWhere[T any](s *schema.Schema[T], conds []Cond, args []any) (string, []any, error) {
	if len(conds) == 0 {
		return "", args, nil
	}

	parts := make([]string, 0, len(conds))
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, c := range conds {
		if _, ok := s.Column(c.column); !ok {
			return "", nil, unknownColumn(s, c.column)
		}
		col := schema.QuoteIdent(c.column)

		switch c.op {
		case opIsNull, opIsNotNull:
			parts = append(parts, fmt.Sprintf("%s %s", col, c.op))
		case opBetween:
			parts = append(parts, fmt.Sprintf("%s BETWEEN %s AND %s", col, next(c.values[0]), next(c.values[1])))
		case opIn:
			if len(c.values) == 0 {
				parts = append(parts, "FALSE")
				continue
			}
			placeholders := make([]string, len(c.values))
			for i, v := range c.values {
				placeholders[i] = next(v)
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
		default:
			parts = append(parts, fmt.Sprintf("%s %s %s", col, c.op, next(c.values[0])))
		}
	}

	return " WHERE " + strings.Join(parts, " AND "), args, nil
}
