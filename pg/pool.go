package pg

import (
	"context"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rise-and-shine/pgbulk/observability/logger"
)

// NewPool creates a PostgreSQL connection pool and pings it, retrying with
// backoff up to cfg.Retry.Attempts times.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errx.Wrap(err)
	}

	poolConfig.MaxConns = cfg.Pool.MaxConns
	poolConfig.MinConns = cfg.Pool.MinConns
	poolConfig.MaxConnIdleTime = cfg.Pool.MaxConnIdleTime
	poolConfig.MaxConnLifetime = cfg.Pool.MaxConnLifetime

	if cfg.Debug.Enabled {
		poolConfig.ConnConfig.Tracer = NewDebugTracer(WithSlowQueryThreshold(cfg.Debug.SlowQueryThreshold))
	}

	pgPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	log := logger.Named("pg").WithContext(ctx)

	err = retry.Do(
		func() error {
			return pgPool.Ping(ctx)
		},
		retry.Attempts(max(cfg.Retry.Attempts, 1)),
		retry.Delay(cfg.Retry.Delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("[pg]: ping failed, retrying",
				"error", err.Error(),
				"attempt", n+1,
				"max_attempts", cfg.Retry.Attempts,
			)
		}),
		retry.Context(ctx),
	)
	if err != nil {
		pgPool.Close()
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"host": cfg.Host, "database": cfg.Database}))
	}

	return pgPool, nil
}
