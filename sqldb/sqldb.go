// Package sqldb runs bulk statements through database/sql using sqlx and lib/pq.
package sqldb

import (
	"context"
	"database/sql/driver"
	"errors"
	"reflect"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rise-and-shine/pgbulk/bulk"
	"github.com/rise-and-shine/pgbulk/pg"
)

const driverName = "postgres"

// Binder converts one statement parameter before it reaches the driver.
type Binder func(param any) any

// Client adapts a *sqlx.DB or *sqlx.Tx to bulk.Querier.
type Client struct {
	db   sqlx.ExtContext
	bind Binder
}

var _ bulk.Querier = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithArrayBinder replaces the parameter binder. The default is PQArray, which lib/pq
// needs to send Go slices as arrays; drivers binding slices natively can use Passthrough.
func WithArrayBinder(b Binder) Option {
	return func(c *Client) {
		c.bind = b
	}
}

// NewClient wraps db.
func NewClient(db sqlx.ExtContext, opts ...Option) *Client {
	c := &Client{db: db, bind: PQArray}
	for _, opt := range opts {
		opt(c)
	}
	if c.bind == nil {
		c.bind = Passthrough
	}
	return c
}

// Open connects to PostgreSQL with lib/pq, pinging with retries like pg.NewPool.
func Open(ctx context.Context, cfg pg.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, errx.Wrap(err)
	}

	db.SetMaxOpenConns(int(cfg.Pool.MaxConns))
	db.SetMaxIdleConns(int(cfg.Pool.MinConns))
	db.SetConnMaxLifetime(cfg.Pool.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.MaxConnIdleTime)

	err = retry.Do(
		func() error {
			return db.PingContext(ctx)
		},
		retry.Attempts(max(cfg.Retry.Attempts, 1)),
		retry.Delay(cfg.Retry.Delay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		_ = db.Close()
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"host": cfg.Host, "database": cfg.Database}))
	}

	return db, nil
}

// Exec runs stmt and returns the affected row count.
func (c *Client) Exec(ctx context.Context, stmt string, params ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, stmt, c.bindAll(params)...)
	if err != nil {
		return 0, wrapError(err, stmt)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err)
	}
	return n, nil
}

// Query runs stmt and returns its rows. The caller must close them.
func (c *Client) Query(ctx context.Context, stmt string, params ...any) (bulk.Rows, error) {
	rows, err := c.db.QueryxContext(ctx, stmt, c.bindAll(params)...)
	if err != nil {
		return nil, wrapError(err, stmt)
	}
	return &sqlRows{Rows: rows, stmt: stmt}, nil
}

func (c *Client) bindAll(params []any) []any {
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = c.bind(p)
	}
	return out
}

type sqlRows struct {
	*sqlx.Rows
	stmt string
}

// Scan reads interval columns into time.Duration targets, which lib/pq returns as text.
func (r *sqlRows) Scan(dest ...any) error {
	targets := make([]any, len(dest))
	for i, d := range dest {
		switch p := d.(type) {
		case *time.Duration:
			targets[i] = &durationScanner{dst: p}
		case **time.Duration:
			targets[i] = &nullDurationScanner{dst: p}
		default:
			targets[i] = d
		}
	}
	return r.Rows.Scan(targets...)
}

func (r *sqlRows) Close() {
	_ = r.Rows.Close()
}

func (r *sqlRows) Err() error {
	if err := r.Rows.Err(); err != nil {
		return wrapError(err, r.stmt)
	}
	return nil
}

// Passthrough binds parameters unchanged.
func Passthrough(param any) any {
	return param
}

//nolint:gochecknoglobals // reflect types
var (
	bytesType    = reflect.TypeFor[[]byte]()
	valuerType   = reflect.TypeFor[driver.Valuer]()
	durationType = reflect.TypeFor[time.Duration]()
)

// PQArray wraps slices with pq.Array. Slices of types lib/pq cannot encode as array
// elements (pointers, uuid.UUID, json.RawMessage, driver.Valuer implementations) are
// first normalized to their driver values. time.Duration elements become interval
// literals with microsecond precision.
func PQArray(param any) any {
	rv := reflect.ValueOf(param)
	if rv.Kind() != reflect.Slice || rv.Type() == bytesType {
		return param
	}

	switch rv.Type().Elem().Kind() { //nolint:exhaustive // natively handled element kinds
	case reflect.Bool, reflect.String, reflect.Int, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Float64:
		if rv.Type().Elem() != durationType && !rv.Type().Elem().Implements(valuerType) {
			return pq.Array(param)
		}
	}
	if rv.Type().Elem() == bytesType {
		return pq.Array(param)
	}

	values := make([]any, rv.Len())
	for i := range values {
		values[i] = normalize(rv.Index(i))
	}
	return pq.Array(values)
}

func normalize(v reflect.Value) any {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		return normalize(v.Elem())
	}

	if v.Type() == durationType {
		return intervalLiteral(time.Duration(v.Int()))
	}

	if valuer, ok := v.Interface().(driver.Valuer); ok {
		out, err := valuer.Value()
		if err == nil {
			return out
		}
	}

	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
		return string(v.Bytes())
	}
	return v.Interface()
}

func wrapError(err error, stmt string) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return errx.Wrap(err, errx.WithDetails(errx.D{"query": stmt}))
	}

	return errx.Wrap(err,
		errx.WithType(pg.ClassifyCode(string(pqErr.Code))),
		errx.WithDetails(errx.D{
			"query":         stmt,
			"pq.code":       string(pqErr.Code),
			"pq.severity":   pqErr.Severity,
			"pq.message":    pqErr.Message,
			"pq.detail":     pqErr.Detail,
			"pq.table":      pqErr.Table,
			"pq.column":     pqErr.Column,
			"pq.constraint": pqErr.Constraint,
		}),
	)
}

func intervalLiteral(d time.Duration) string {
	// text encoding of a valid interval never fails
	v, _ := pgtype.Interval{Microseconds: d.Microseconds(), Valid: true}.Value()
	s, _ := v.(string)
	return s
}

type durationScanner struct {
	dst *time.Duration
}

func (s *durationScanner) Scan(src any) error {
	if src == nil {
		return errx.New("[sqldb]: cannot scan NULL interval into time.Duration", errx.WithType(errx.T_Validation))
	}
	d, err := scanInterval(src)
	if err != nil {
		return err
	}
	*s.dst = d
	return nil
}

type nullDurationScanner struct {
	dst **time.Duration
}

func (s *nullDurationScanner) Scan(src any) error {
	if src == nil {
		*s.dst = nil
		return nil
	}
	d, err := scanInterval(src)
	if err != nil {
		return err
	}
	*s.dst = &d
	return nil
}

// scanInterval parses the text form lib/pq returns for interval columns. Months have no
// fixed length, so intervals carrying them are rejected.
func scanInterval(src any) (time.Duration, error) {
	if b, ok := src.([]byte); ok {
		src = string(b)
	}

	var iv pgtype.Interval
	if err := iv.Scan(src); err != nil {
		return 0, errx.Wrap(err, errx.WithType(errx.T_Validation), errx.WithDetails(errx.D{"interval": src}))
	}
	if iv.Months != 0 {
		return 0, errx.New(
			"[sqldb]: interval with months cannot be represented as time.Duration",
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"interval": src}),
		)
	}
	return time.Duration(iv.Days)*24*time.Hour + time.Duration(iv.Microseconds)*time.Microsecond, nil
}
