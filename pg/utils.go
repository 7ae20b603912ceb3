package pg

import (
	"errors"
	"strings"

	"github.com/code19m/errx"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classify maps a raw PostgreSQL error to an errx type. See ClassifyCode.
// Errors returned by Client already carry this type and the pg.* details, so callers
// check errx.AsErrorX(err).Type() (for example errx.T_Conflict) instead.
func Classify(err error) errx.Type {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return errx.T_Internal
	}
	return ClassifyCode(pgErr.Code)
}

// ClassifyCode maps a SQLSTATE code to an errx type:
// unique and exclusion violations are conflicts, other integrity and data
// exceptions are validation errors and everything else is internal.
func ClassifyCode(code string) errx.Type {
	switch {
	case code == pgerrcode.UniqueViolation, code == pgerrcode.ExclusionViolation:
		return errx.T_Conflict
	case pgerrcode.IsIntegrityConstraintViolation(code), pgerrcode.IsDataException(code):
		return errx.T_Validation
	default:
		return errx.T_Internal
	}
}

// GetPgErrorDetails extracts detailed information from a PostgreSQL error.
// The statement, when given, is added with quotes stripped.
func GetPgErrorDetails(err error, stmt string) errx.D {
	details := make(errx.D)
	if stmt != "" {
		details["query"] = strings.ReplaceAll(stmt, `"`, ``)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return details
	}

	details["pg.code"] = pgErr.Code
	details["pg.severity"] = pgErr.Severity
	details["pg.message"] = pgErr.Message
	details["pg.detail"] = pgErr.Detail
	details["pg.hint"] = pgErr.Hint
	details["pg.schema"] = pgErr.SchemaName
	details["pg.table"] = pgErr.TableName
	details["pg.column"] = pgErr.ColumnName
	details["pg.data_type"] = pgErr.DataTypeName
	details["pg.constraint"] = pgErr.ConstraintName

	return details
}
