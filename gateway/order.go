package gateway

import (
	"slices"
	"strings"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/pgbulk/schema"
)

// Direction is an ORDER BY direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Order is one ORDER BY term.
type Order struct {
	Column    string
	Direction Direction
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column, Direction: Ascending} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Direction: Descending} }

// ParseOrder parses a sort string like "name:asc,auto_id:desc".
// Malformed pairs and unknown directions are skipped; column names are
// checked later, against the table schema.
func ParseOrder(s string) []Order {
	if s == "" {
		return nil
	}

	var out []Order
	for pair := range strings.SplitSeq(s, ",") {
		column, dir, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}

		d := Direction(strings.ToLower(strings.TrimSpace(dir)))
		if !slices.Contains([]Direction{Ascending, Descending}, d) {
			continue
		}

		out = append(out, Order{Column: strings.TrimSpace(column), Direction: d})
	}
	return out
}

func buildOrderBy[T any](s *schema.Schema[T], orders []Order) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}

	terms := make([]string, len(orders))
	for i, o := range orders {
		if _, ok := s.Column(o.Column); !ok {
			return "", unknownColumn(s, o.Column)
		}
		terms[i] = schema.QuoteIdent(o.Column) + " " + strings.ToUpper(string(o.Direction))
	}
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func unknownColumn[T any](s *schema.Schema[T], column string) error {
	return errx.New(
		"[gateway]: unknown column",
		errx.WithCode(CodeUnknownColumn),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"table": s.Table(), "column": column}),
	)
}
