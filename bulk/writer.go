// Package bulk writes row records to PostgreSQL in chunks using UNNEST array parameters.
//
// Each chunk is one statement executed through a Querier. Chunks run strictly in
// order, the first failing chunk ends the call, and chunks committed before it are
// reported in the Result and never rolled back or retried.
package bulk

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.23.1"
	"go.opentelemetry.io/otel/trace"

	"github.com/rise-and-shine/pgbulk/columnar"
	"github.com/rise-and-shine/pgbulk/meta"
	"github.com/rise-and-shine/pgbulk/metrics"
	"github.com/rise-and-shine/pgbulk/observability/logger"
	"github.com/rise-and-shine/pgbulk/schema"
)

const tracerName = "github.com/rise-and-shine/pgbulk/bulk"

const (
	opInsert = "insert"
	opUpsert = "upsert"
)

// Writer runs chunked bulk inserts and upserts for row type T.
// A Writer holds no connection state and is safe for concurrent use.
type Writer[T any] struct {
	schema    *schema.Schema[T]
	chunkSize int
	logger    logger.Logger
	tracer    trace.Tracer
	metrics   *metrics.Recorder

	insertStmt string
	upsertStmt string
	upsertErr  error

	conflictTarget []string
}

// NewWriter prepares the statements for s.
//
// The conflict target defaults to the schema's key columns. A schema without key
// columns can still insert, but Upsert then fails with INVALID_CONFIGURATION.
func NewWriter[T any](s *schema.Schema[T], opts ...Option) (*Writer[T], error) {
	o := options{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}

	if o.chunkSize < 1 {
		return nil, invalidConfig("chunk size must be at least 1", errx.D{"chunk_size": o.chunkSize})
	}
	if o.logger == nil {
		o.logger = logger.Named("bulk")
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	cols := s.InsertColumns()
	insertStmt, err := InsertStatement(s.Table(), cols)
	if err != nil {
		return nil, err
	}

	w := &Writer[T]{
		schema:     s,
		chunkSize:  o.chunkSize,
		logger:     o.logger,
		tracer:     o.tracer,
		metrics:    o.metrics,
		insertStmt: insertStmt,
	}

	explicitTarget := o.conflictTarget != nil
	w.conflictTarget = o.conflictTarget
	if !explicitTarget {
		w.conflictTarget = lo.Map(s.KeyColumns(), func(c schema.Column, _ int) string { return c.Name })
	}

	w.upsertStmt, w.upsertErr = UpsertStatement(s.Table(), cols, w.conflictTarget)
	if w.upsertErr != nil && explicitTarget {
		return nil, w.upsertErr
	}

	return w, nil
}

// Schema returns the schema the writer was built for.
func (w *Writer[T]) Schema() *schema.Schema[T] {
	return w.schema
}

// ChunkSize returns the configured chunk size.
func (w *Writer[T]) ChunkSize() int {
	return w.chunkSize
}

// InsertStatement returns the statement executed per chunk by Insert.
func (w *Writer[T]) InsertStatement() string {
	return w.insertStmt
}

// UpsertStatement returns the statement executed per chunk by Upsert.
func (w *Writer[T]) UpsertStatement() (string, error) {
	return w.upsertStmt, w.upsertErr
}

// Insert writes rows with one INSERT ... SELECT * FROM UNNEST per chunk.
func (w *Writer[T]) Insert(ctx context.Context, q Querier, rows []T) (Result, error) {
	return w.run(ctx, opInsert, rows, execChunk(q, w.insertStmt))
}

// Upsert writes rows overwriting every non-conflict column of existing rows.
func (w *Writer[T]) Upsert(ctx context.Context, q Querier, rows []T) (Result, error) {
	if w.upsertErr != nil {
		return Result{State: StateIdle, FailedChunk: -1, FailedOffset: -1}, w.upsertErr
	}
	return w.run(ctx, opUpsert, rows, execChunk(q, w.upsertStmt))
}

// chunkFunc executes one batch and returns the affected row count.
type chunkFunc func(ctx context.Context, b columnar.Batch) (int64, error)

func execChunk(q Querier, stmt string) chunkFunc {
	return func(ctx context.Context, b columnar.Batch) (int64, error) {
		return q.Exec(ctx, stmt, b.Columns...)
	}
}

func (w *Writer[T]) run(ctx context.Context, op string, rows []T, exec chunkFunc) (Result, error) {
	res := Result{
		State:        StateIdle,
		Planned:      columnar.Count(len(rows), w.chunkSize),
		FailedChunk:  -1,
		FailedOffset: -1,
	}

	batches, err := columnar.Transpose(w.schema.InsertColumns(), rows, w.chunkSize)
	if err != nil {
		return res, errx.Wrap(err, errx.WithCode(CodeInvalidConfiguration))
	}

	table := w.schema.Table()
	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{
		meta.Table:     table,
		meta.Operation: op,
	})

	ctx, span := w.tracer.Start(ctx, "bulk."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBSQLTable(table),
			semconv.DBOperation(op),
			attribute.Int("pgbulk.rows", len(rows)),
			attribute.Int("pgbulk.chunk_size", w.chunkSize),
			attribute.Int("pgbulk.chunks", res.Planned),
		),
	)
	defer span.End()

	log := w.logger.WithContext(ctx)
	res.State = StateStreaming

	for b := range batches {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = res.fail(b, errx.Wrap(ctxErr,
				errx.WithCode(CodeCanceled),
				errx.WithDetails(progressDetails(b, res)),
			))
			log.Warnx(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}

		affected, chunkErr := w.runChunk(ctx, b, exec)
		if chunkErr != nil {
			code := CodeDriverError
			switch {
			case ctx.Err() != nil:
				// interrupted mid-statement; its commit state is unknown
				code = CodeCanceled
			case errx.IsCodeIn(chunkErr, CodeCorrelationMismatch):
				code = CodeCorrelationMismatch
			}
			err = res.fail(b, errx.Wrap(chunkErr,
				errx.WithCode(code),
				errx.WithDetails(progressDetails(b, res)),
			))
			log.Errorx(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}

		res.Chunks++
		res.Rows += b.Len
		res.Affected += affected

		log.With(
			"chunk_index", b.Index,
			"row_count", b.Len,
			"affected", affected,
		).Debug("[bulk]: chunk committed")
	}

	res.State = StateCompleted
	span.SetAttributes(attribute.Int64("pgbulk.affected", res.Affected))
	return res, nil
}

func (w *Writer[T]) runChunk(ctx context.Context, b columnar.Batch, exec chunkFunc) (int64, error) {
	ctx, span := w.tracer.Start(ctx, "bulk.chunk",
		trace.WithAttributes(
			attribute.Int("pgbulk.chunk_index", b.Index),
			attribute.Int("pgbulk.row_offset", b.Offset),
			attribute.Int("pgbulk.row_count", b.Len),
		),
	)
	defer span.End()

	start := time.Now()
	affected, err := exec(ctx, b)
	elapsed := time.Since(start)

	if err != nil {
		w.metrics.ChunkFailed(w.schema.Table(), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	w.metrics.ChunkCommitted(w.schema.Table(), b.Len, elapsed)
	return affected, nil
}

func (r *Result) fail(b columnar.Batch, err error) error {
	r.State = StateFailed
	r.FailedChunk = b.Index
	r.FailedOffset = b.Offset
	return err
}

func progressDetails(b columnar.Batch, res Result) errx.D {
	return errx.D{
		"chunk_index":      b.Index,
		"row_offset":       b.Offset,
		"row_count":        b.Len,
		"committed_chunks": res.Chunks,
		"committed_rows":   res.Rows,
	}
}
