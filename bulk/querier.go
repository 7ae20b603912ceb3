package bulk

import "context"

// Querier is the SQL execution capability the writer runs statements on.
// Parameters are always bound positionally; one call is one round trip.
//
// pg.Client adapts a pgx pool, connection or transaction and sqldb.Client adapts
// database/sql through sqlx.
type Querier interface {
	// Exec runs stmt and returns the number of affected rows.
	Exec(ctx context.Context, stmt string, params ...any) (int64, error)
	// Query runs stmt and returns its result rows in order.
	Query(ctx context.Context, stmt string, params ...any) (Rows, error)
}

// Rows is a forward-only cursor over query results.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}
