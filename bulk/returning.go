package bulk

import (
	"context"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/pgbulk/columnar"
)

// InsertReturning inserts rows like Writer.Insert and pairs every row with the id
// generated by the schema's auto column, in input order.
//
// On a chunk failure the returned entries are nil and Result reports the
// committed progress.
func InsertReturning[T, K any](ctx context.Context, w *Writer[T], q Querier, rows []T) ([]Entry[T, K], Result, error) {
	stmt, err := w.returningStatement(opInsert)
	if err != nil {
		return nil, Result{State: StateIdle, FailedChunk: -1, FailedOffset: -1}, err
	}
	return runReturning[T, K](ctx, w, q, opInsert, stmt, rows)
}

// UpsertReturning upserts rows like Writer.Upsert and pairs every row with the id
// of the inserted or updated row. With a DO NOTHING upsert fewer ids than rows may
// come back, which fails with CORRELATION_MISMATCH.
func UpsertReturning[T, K any](ctx context.Context, w *Writer[T], q Querier, rows []T) ([]Entry[T, K], Result, error) {
	stmt, err := w.returningStatement(opUpsert)
	if err != nil {
		return nil, Result{State: StateIdle, FailedChunk: -1, FailedOffset: -1}, err
	}
	return runReturning[T, K](ctx, w, q, opUpsert, stmt, rows)
}

func runReturning[T, K any](
	ctx context.Context,
	w *Writer[T],
	q Querier,
	op string,
	stmt string,
	rows []T,
) ([]Entry[T, K], Result, error) {
	ids := make([][]K, 0, columnar.Count(len(rows), w.chunkSize))

	res, err := w.run(ctx, op, rows, func(ctx context.Context, b columnar.Batch) (int64, error) {
		chunkIDs, err := queryIDs[K](ctx, q, stmt, b.Columns)
		if err != nil {
			return 0, err
		}
		if len(chunkIDs) != b.Len {
			return 0, errx.New(
				"[bulk]: chunk returned a different number of ids than rows",
				errx.WithCode(CodeCorrelationMismatch),
				errx.WithType(errx.T_Internal),
				errx.WithDetails(errx.D{"ids": len(chunkIDs)}),
			)
		}
		ids = append(ids, chunkIDs)
		return int64(len(chunkIDs)), nil
	})
	if err != nil {
		return nil, res, err
	}

	entries, err := Correlate(rows, ids)
	if err != nil {
		res.State = StateFailed
		w.logger.WithContext(ctx).Errorx(err)
		return nil, res, err
	}

	return entries, res, nil
}

func queryIDs[K any](ctx context.Context, q Querier, stmt string, params []any) ([]K, error) {
	rows, err := q.Query(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []K
	for rows.Next() {
		var id K
		if err = rows.Scan(&id); err != nil {
			return nil, errx.Wrap(err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, errx.Wrap(err)
	}
	return ids, nil
}

func (w *Writer[T]) returningStatement(op string) (string, error) {
	auto, ok := w.schema.AutoColumn()
	if !ok {
		return "", invalidConfig("returning ids requires an auto column", errx.D{"table": w.schema.Table()})
	}

	cols := w.schema.InsertColumns()
	if op == opUpsert {
		if w.upsertErr != nil {
			return "", w.upsertErr
		}
		return UpsertStatement(w.schema.Table(), cols, w.conflictTarget, auto.Name)
	}
	return InsertStatement(w.schema.Table(), cols, auto.Name)
}
