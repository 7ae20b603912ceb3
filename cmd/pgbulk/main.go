// Command pgbulk writes generated rows into PostgreSQL with the bulk writer.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/pgbulk/bulk"
	"github.com/rise-and-shine/pgbulk/cfgloader"
	"github.com/rise-and-shine/pgbulk/meta"
	"github.com/rise-and-shine/pgbulk/metrics"
	"github.com/rise-and-shine/pgbulk/observability/logger"
	"github.com/rise-and-shine/pgbulk/observability/tracing"
	"github.com/rise-and-shine/pgbulk/pg"
	"github.com/rise-and-shine/pgbulk/sqldb"
)

const (
	serviceName    = "pgbulk"
	serviceVersion = "0.1.0"
)

func main() {
	cfg := cfgloader.MustLoad[Config](cfgloader.WithSilent())

	meta.SetServiceInfo(serviceName, serviceVersion)
	logger.SetGlobal(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	logger.Named("pgbulk").Info("[pgbulk]: config loaded", "config", cfgloader.Masked(cfg))

	shutdown, err := tracing.InitGlobalTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalx(err)
	}
	defer func() {
		if err := shutdown(); err != nil {
			logger.Errorx(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = tracing.WithTraceID(ctx)

	if err := execute(ctx, cfg); err != nil {
		logger.WithContext(ctx).Errorx(err)
	}
}

func execute(ctx context.Context, cfg Config) error {
	q, closeFn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	r, err := newRunner(cfg, logger.Named("pgbulk"), metrics.NewRecorder(nil))
	if err != nil {
		return err
	}
	return r.run(ctx, q)
}

func connect(ctx context.Context, cfg Config) (bulk.Querier, func(), error) {
	switch cfg.Driver {
	case driverPgx:
		pool, err := pg.NewPool(ctx, cfg.PG)
		if err != nil {
			return nil, nil, err
		}
		return pg.NewClient(pool), pool.Close, nil

	case driverPq:
		db, err := sqldb.Open(ctx, cfg.PG)
		if err != nil {
			return nil, nil, err
		}
		return sqldb.NewClient(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, errx.New("[pgbulk]: unknown driver", errx.WithDetails(errx.D{"driver": cfg.Driver}))
	}
}
