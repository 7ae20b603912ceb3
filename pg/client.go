package pg

import (
	"context"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rise-and-shine/pgbulk/bulk"
)

// DBTX is the part of *pgxpool.Pool, *pgx.Conn and pgx.Tx the client needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Client runs bulk statements on a pgx pool, connection or transaction.
// pgx binds Go slices as PostgreSQL arrays natively.
type Client struct {
	db DBTX
}

var _ bulk.Querier = (*Client)(nil)

// NewClient wraps db.
func NewClient(db DBTX) *Client {
	return &Client{db: db}
}

// Exec runs stmt and returns the affected row count.
func (c *Client) Exec(ctx context.Context, stmt string, params ...any) (int64, error) {
	tag, err := c.db.Exec(ctx, stmt, params...)
	if err != nil {
		return 0, wrapError(err, stmt)
	}
	return tag.RowsAffected(), nil
}

// Query runs stmt and returns its rows. The caller must close them.
func (c *Client) Query(ctx context.Context, stmt string, params ...any) (bulk.Rows, error) {
	rows, err := c.db.Query(ctx, stmt, params...)
	if err != nil {
		return nil, wrapError(err, stmt)
	}
	return &pgxRows{Rows: rows, stmt: stmt}, nil
}

// pgxRows attaches PostgreSQL details to errors surfacing while reading.
type pgxRows struct {
	pgx.Rows
	stmt string
}

func (r *pgxRows) Err() error {
	if err := r.Rows.Err(); err != nil {
		return wrapError(err, r.stmt)
	}
	return nil
}

func wrapError(err error, stmt string) error {
	return errx.Wrap(err,
		errx.WithType(Classify(err)),
		errx.WithDetails(GetPgErrorDetails(err, stmt)),
	)
}
