package bulk

import (
	"fmt"
	"strings"

	"github.com/code19m/errx"
	"github.com/samber/lo"

	"github.com/rise-and-shine/pgbulk/schema"
)

// InsertStatement builds the unnest bulk insert for cols:
//
//	INSERT INTO "t" ("a", "b") SELECT * FROM UNNEST($1::text[], $2::integer[]) [RETURNING "id"]
//
// Parameter $n is the column vector of cols[n-1].
func InsertStatement(table string, cols []schema.Column, returning ...string) (string, error) {
	if len(cols) == 0 {
		return "", invalidConfig("no columns to insert", errx.D{"table": table})
	}

	names := lo.Map(cols, func(c schema.Column, _ int) string { return schema.QuoteIdent(c.Name) })
	params := lo.Map(cols, func(c schema.Column, i int) string {
		return fmt.Sprintf("$%d::%s", i+1, c.Type.ArrayCast())
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) SELECT * FROM UNNEST(%s)",
		schema.QuoteTable(table),
		strings.Join(names, ", "),
		strings.Join(params, ", "),
	)
	writeReturning(&sb, returning)

	return sb.String(), nil
}

// UpsertStatement builds the unnest bulk upsert for cols. Every column outside
// conflictTarget is overwritten with the incoming value on conflict:
//
//	... ON CONFLICT ("k") DO UPDATE SET "v" = EXCLUDED."v"
//
// When every column belongs to the conflict target there is nothing to update
// and the statement uses DO NOTHING.
func UpsertStatement(table string, cols []schema.Column, conflictTarget []string, returning ...string) (string, error) {
	if len(conflictTarget) == 0 {
		return "", invalidConfig("conflict target must not be empty", errx.D{"table": table})
	}

	names := lo.Map(cols, func(c schema.Column, _ int) string { return c.Name })
	for _, key := range conflictTarget {
		if !lo.Contains(names, key) {
			return "", invalidConfig("conflict target column is not inserted", errx.D{"table": table, "column": key})
		}
	}
	if dups := lo.FindDuplicates(conflictTarget); len(dups) > 0 {
		return "", invalidConfig("duplicate conflict target column", errx.D{"table": table, "column": dups[0]})
	}

	stmt, err := InsertStatement(table, cols)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(stmt)
	fmt.Fprintf(&sb, " ON CONFLICT (%s)", strings.Join(lo.Map(conflictTarget, quote), ", "))

	updates := lo.Without(names, conflictTarget...)
	if len(updates) == 0 {
		sb.WriteString(" DO NOTHING")
	} else {
		sets := lo.Map(updates, func(n string, _ int) string {
			q := schema.QuoteIdent(n)
			return q + " = EXCLUDED." + q
		})
		sb.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
	}
	writeReturning(&sb, returning)

	return sb.String(), nil
}

func writeReturning(sb *strings.Builder, returning []string) {
	if len(returning) == 0 {
		return
	}
	sb.WriteString(" RETURNING " + strings.Join(lo.Map(returning, quote), ", "))
}

func quote(name string, _ int) string {
	return schema.QuoteIdent(name)
}

func invalidConfig(msg string, details errx.D) error {
	return errx.New(
		"[bulk]: "+msg,
		errx.WithCode(CodeInvalidConfiguration),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}
