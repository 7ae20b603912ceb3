package main

import (
	"context"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/pgbulk/bulk"
	"github.com/rise-and-shine/pgbulk/gateway"
	"github.com/rise-and-shine/pgbulk/metrics"
	"github.com/rise-and-shine/pgbulk/observability/logger"
	"github.com/rise-and-shine/pgbulk/sample"
	"github.com/rise-and-shine/pgbulk/schema"
)

type runner struct {
	cfg     Config
	log     logger.Logger
	metrics *metrics.Recorder
	table   *gateway.Table[sampleWithID]
}

func newRunner(cfg Config, log logger.Logger, rec *metrics.Recorder) (*runner, error) {
	s, err := schema.Of[sampleWithID](sampleTable)
	if err != nil {
		return nil, err
	}

	table, err := gateway.New(s,
		bulk.WithConfig(cfg.Bulk),
		bulk.WithLogger(log),
		bulk.WithMetrics(rec),
	)
	if err != nil {
		return nil, err
	}

	return &runner{cfg: cfg, log: log, metrics: rec, table: table}, nil
}

func (r *runner) run(ctx context.Context, q bulk.Querier) error {
	if !r.cfg.SkipCreateTable {
		if err := r.table.CreateTable(ctx, q); err != nil {
			return err
		}
	}

	if r.cfg.Truncate {
		n, err := r.table.DeleteAll(ctx, q)
		if err != nil {
			return err
		}
		r.log.Info("[pgbulk]: table truncated", "deleted", n)
	}

	rows, err := sample.Rows(r.table.Schema(), r.cfg.Rows)
	if err != nil {
		return err
	}

	switch r.cfg.Mode {
	case modeInsert:
		res, err := r.table.BulkInsert(ctx, q, rows)
		r.report(modeInsert, len(rows), res)
		return err

	case modeUpsert:
		res, err := r.table.BulkUpsert(ctx, q, rows)
		r.report(modeUpsert, len(rows), res)
		if err != nil {
			return err
		}

		for i := range rows {
			if err = sample.Mutate(r.table.Schema(), &rows[i]); err != nil {
				return err
			}
		}
		res, err = r.table.BulkUpsert(ctx, q, rows)
		r.report(modeUpsert, len(rows), res)
		return err

	case modeInsertReturning:
		entries, res, err := gateway.BulkInsertReturning[sampleWithID, int32](ctx, r.table, q, rows)
		r.report(modeInsertReturning, len(rows), res)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			r.log.With(
				"first_id", entries[0].ID,
				"last_id", entries[len(entries)-1].ID,
			).Info("[pgbulk]: ids correlated")
		}
		return nil

	default:
		return errx.New("[pgbulk]: unknown mode", errx.WithType(errx.T_Validation), errx.WithDetails(errx.D{"mode": r.cfg.Mode}))
	}
}

func (r *runner) report(mode string, total int, res bulk.Result) {
	snap := r.metrics.Snapshot(sampleTable)
	r.log.With(
		"mode", mode,
		"state", res.State.String(),
		"planned_chunks", res.Planned,
		"committed_chunks", res.Chunks,
		"committed_rows", res.Rows,
		"affected", res.Affected,
		"remaining", res.Remaining(total),
		"mean_chunk_duration", snap.MeanDuration.String(),
	).Info("[pgbulk]: bulk call finished")
}
