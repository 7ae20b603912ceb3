package bulk_test

import (
	"context"
	"testing"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rise-and-shine/pgbulk/bulk"
	"github.com/rise-and-shine/pgbulk/metrics"
	"github.com/rise-and-shine/pgbulk/observability/logger"
	"github.com/rise-and-shine/pgbulk/schema"
)

func newWriter(t *testing.T, chunkSize int, opts ...bulk.Option) *bulk.Writer[sampleRow] {
	t.Helper()
	opts = append([]bulk.Option{bulk.WithChunkSize(chunkSize), bulk.WithLogger(logger.NewNop())}, opts...)
	w, err := bulk.NewWriter(schema.MustOf[sampleRow]("sample"), opts...)
	require.NoError(t, err)
	return w
}

func TestNewWriter(t *testing.T) {
	s := schema.MustOf[sampleRow]("sample")

	tests := []struct {
		name     string
		opts     []bulk.Option
		wantCode string
	}{
		{name: "defaults"},
		{name: "from config", opts: []bulk.Option{bulk.WithConfig(bulk.Config{ChunkSize: 10})}},
		{name: "zero chunk size", opts: []bulk.Option{bulk.WithChunkSize(0)}, wantCode: bulk.CodeInvalidConfiguration},
		{name: "negative chunk size", opts: []bulk.Option{bulk.WithChunkSize(-5)}, wantCode: bulk.CodeInvalidConfiguration},
		{
			name:     "unknown conflict column",
			opts:     []bulk.Option{bulk.WithConflictTarget("nope")},
			wantCode: bulk.CodeInvalidConfiguration,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, err := bulk.NewWriter(s, append(tc.opts, bulk.WithLogger(logger.NewNop()))...)
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errx.IsCodeIn(err, tc.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, s, w.Schema())
		})
	}

	w, err := bulk.NewWriter(s, bulk.WithLogger(logger.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, 1000, w.ChunkSize())
}

func TestInsertChunksRowsInOrder(t *testing.T) {
	q := newCapturing()
	w := newWriter(t, 2)

	res, err := w.Insert(t.Context(), q, sampleRows("a", "b", "c"))
	require.NoError(t, err)

	require.Len(t, q.calls, 2)
	assert.Equal(t, w.InsertStatement(), q.calls[0].stmt)
	assert.Equal(t, []any{[]string{"a", "b"}, []int32{0, 1}, []*string{nil, nil}}, q.calls[0].params)
	assert.Equal(t, []any{[]string{"c"}, []int32{2}, []*string{nil}}, q.calls[1].params)

	assert.Equal(t, bulk.Result{
		State:        bulk.StateCompleted,
		Planned:      2,
		Chunks:       2,
		Rows:         3,
		Affected:     3,
		FailedChunk:  -1,
		FailedOffset: -1,
	}, res)
}

func TestInsertBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		chunkSize int
		wantCalls int
	}{
		{name: "empty input", rows: 0, chunkSize: 3, wantCalls: 0},
		{name: "chunk equals input", rows: 4, chunkSize: 4, wantCalls: 1},
		{name: "chunk larger than input", rows: 4, chunkSize: 100, wantCalls: 1},
		{name: "exact multiple", rows: 6, chunkSize: 2, wantCalls: 3},
		{name: "remainder", rows: 7, chunkSize: 3, wantCalls: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			names := make([]string, tc.rows)
			for i := range names {
				names[i] = string(rune('a' + i))
			}

			q := newCapturing()
			res, err := newWriter(t, tc.chunkSize).Insert(t.Context(), q, sampleRows(names...))
			require.NoError(t, err)

			assert.Len(t, q.calls, tc.wantCalls)
			assert.Equal(t, bulk.StateCompleted, res.State)
			assert.Equal(t, tc.wantCalls, res.Chunks)
			assert.Equal(t, tc.rows, res.Rows)
			assert.Equal(t, int64(tc.rows), res.Affected)
		})
	}
}

func TestInsertStopsAtFailingChunk(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	q := newCapturing()
	q.failAt = 2
	rec := metrics.NewRecorder(nil)
	w := newWriter(t, 2, bulk.WithLogger(logger.FromZap(zap.New(core))), bulk.WithMetrics(rec))

	res, err := w.Insert(t.Context(), q, sampleRows("a", "b", "c", "d", "e", "f", "g", "h", "i", "j"))
	require.Error(t, err)

	assert.True(t, errx.IsCodeIn(err, bulk.CodeDriverError))
	details := errx.AsErrorX(err).Details()
	assert.Contains(t, details, "chunk_index")
	assert.Contains(t, details, "row_offset")

	assert.Len(t, q.calls, 3, "chunks after the failing one must not run")
	assert.Equal(t, bulk.Result{
		State:        bulk.StateFailed,
		Planned:      5,
		Chunks:       2,
		Rows:         4,
		Affected:     4,
		FailedChunk:  2,
		FailedOffset: 4,
	}, res)
	assert.Equal(t, 6, res.Remaining(10))

	assert.Equal(t, 2, logs.FilterMessage("[bulk]: chunk committed").Len())
	failures := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, failures, 1)
	assert.Equal(t, bulk.CodeDriverError, failures[0].ContextMap()["error_code"])
	assert.Equal(t, "sample", failures[0].ContextMap()["table"])
	assert.Equal(t, "insert", failures[0].ContextMap()["operation"])

	snap := rec.Snapshot("sample")
	assert.Equal(t, int64(2), snap.Chunks)
	assert.Equal(t, int64(4), snap.Rows)
	assert.Equal(t, int64(1), snap.Failures)
}

func TestInsertCanceledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	q := newCapturing()
	q.onCall = func(index int) {
		if index == 1 {
			cancel()
		}
	}

	res, err := newWriter(t, 1).Insert(ctx, q, sampleRows("a", "b", "c", "d"))
	require.Error(t, err)

	assert.True(t, errx.IsCodeIn(err, bulk.CodeCanceled))
	assert.Len(t, q.calls, 2)
	assert.Equal(t, bulk.StateFailed, res.State)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 2, res.FailedChunk)
	assert.Equal(t, 2, res.FailedOffset)
}

func TestInsertCanceledDuringChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	q := newCapturing()
	q.failAt = 1
	q.onCall = func(index int) {
		if index == 1 {
			cancel()
		}
	}

	res, err := newWriter(t, 2).Insert(ctx, q, sampleRows("a", "b", "c", "d", "e"))
	require.Error(t, err)

	assert.True(t, errx.IsCodeIn(err, bulk.CodeCanceled))
	assert.Equal(t, bulk.StateFailed, res.State)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 1, res.FailedChunk)
	assert.Equal(t, 2, res.FailedOffset)
	assert.Equal(t, 3, res.Remaining(5))
}

func TestInsertReturningCorrelatesIDs(t *testing.T) {
	q := newCapturing()
	w := newWriter(t, 2)
	rows := sampleRows("a", "b", "c", "d", "e")

	entries, res, err := bulk.InsertReturning[sampleRow, int64](t.Context(), w, q, rows)
	require.NoError(t, err)

	require.Len(t, q.calls, 3)
	assert.Contains(t, q.calls[0].stmt, `RETURNING "auto_id"`)
	require.Len(t, entries, len(rows))
	for i, e := range entries {
		assert.Equal(t, rows[i], e.Row)
		assert.Equal(t, int64(i+1), e.ID)
	}
	assert.Equal(t, bulk.StateCompleted, res.State)
	assert.Equal(t, int64(5), res.Affected)
}

func TestInsertReturningMismatch(t *testing.T) {
	q := newCapturing()
	q.shortAt = 1

	entries, res, err := bulk.InsertReturning[sampleRow, int64](t.Context(), newWriter(t, 2), q, sampleRows("a", "b", "c", "d"))
	require.Error(t, err)

	assert.True(t, errx.IsCodeIn(err, bulk.CodeCorrelationMismatch))
	assert.Nil(t, entries)
	assert.Equal(t, bulk.StateFailed, res.State)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 1, res.FailedChunk)
	assert.Equal(t, 2, res.FailedOffset)
}

func TestInsertReturningStopsAtMisalignedChunk(t *testing.T) {
	q := newCapturing()
	q.shortAt = 0
	q.longAt = 1

	entries, res, err := bulk.InsertReturning[sampleRow, int64](t.Context(), newWriter(t, 2), q, sampleRows("a", "b", "c", "d"))
	require.Error(t, err)

	assert.True(t, errx.IsCodeIn(err, bulk.CodeCorrelationMismatch))
	details := errx.AsErrorX(err).Details()
	assert.Equal(t, 0, details["chunk_index"])
	assert.Equal(t, 0, details["row_offset"])
	assert.Nil(t, entries)
	assert.Len(t, q.calls, 1, "chunks after the misaligned one must not run")
	assert.Equal(t, bulk.StateFailed, res.State)
	assert.Equal(t, 0, res.Chunks)
	assert.Equal(t, 0, res.FailedChunk)
	assert.Equal(t, 0, res.FailedOffset)
}

func TestInsertReturningRequiresAutoColumn(t *testing.T) {
	w, err := bulk.NewWriter(schema.MustOf[keylessRow]("keyless"), bulk.WithLogger(logger.NewNop()))
	require.NoError(t, err)

	q := newCapturing()
	_, _, err = bulk.InsertReturning[keylessRow, int64](t.Context(), w, q, []keylessRow{{Name: "a"}})
	assert.True(t, errx.IsCodeIn(err, bulk.CodeInvalidConfiguration))
	assert.Empty(t, q.calls)
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := newUpsertStore()
	w := newWriter(t, 2)
	rows := sampleRows("a", "b", "c")

	_, err := w.Upsert(t.Context(), store, rows)
	require.NoError(t, err)
	first := map[string]storedRow{}
	for k, v := range store.rows {
		first[k] = v
	}

	res, err := w.Upsert(t.Context(), store, rows)
	require.NoError(t, err)
	assert.Equal(t, first, store.rows)
	assert.Equal(t, 3, res.Rows)

	note := "changed"
	rows[1].Qty = 99
	rows[1].Note = &note
	_, err = w.Upsert(t.Context(), store, rows)
	require.NoError(t, err)
	assert.Len(t, store.rows, 3)
	assert.Equal(t, storedRow{Qty: 99, Note: &note}, store.rows["b"])

	_, err = w.Insert(t.Context(), store, rows[:1])
	assert.True(t, errx.IsCodeIn(err, bulk.CodeDriverError))
}

func TestUpsertWithoutConflictTarget(t *testing.T) {
	w, err := bulk.NewWriter(schema.MustOf[keylessRow]("keyless"), bulk.WithLogger(logger.NewNop()))
	require.NoError(t, err)

	q := newCapturing()
	res, err := w.Upsert(t.Context(), q, []keylessRow{{Name: "a"}})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, bulk.CodeInvalidConfiguration))
	assert.Equal(t, bulk.StateIdle, res.State)
	assert.Empty(t, q.calls)

	w, err = bulk.NewWriter(schema.MustOf[keylessRow]("keyless"),
		bulk.WithLogger(logger.NewNop()),
		bulk.WithConflictTarget("name"),
	)
	require.NoError(t, err)
	_, err = w.Upsert(t.Context(), q, []keylessRow{{Name: "a"}})
	require.NoError(t, err)
	assert.Contains(t, q.calls[0].stmt, `ON CONFLICT ("name") DO UPDATE SET "qty" = EXCLUDED."qty"`)
}

func TestUpsertReturning(t *testing.T) {
	q := newCapturing()
	entries, res, err := bulk.UpsertReturning[sampleRow, int64](t.Context(), newWriter(t, 10), q, sampleRows("a", "b"))
	require.NoError(t, err)

	require.Len(t, q.calls, 1)
	assert.Contains(t, q.calls[0].stmt, `ON CONFLICT ("name") DO UPDATE SET`)
	assert.Contains(t, q.calls[0].stmt, `RETURNING "auto_id"`)
	assert.Len(t, entries, 2)
	assert.Equal(t, bulk.StateCompleted, res.State)
}

func TestSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	q := newCapturing()
	q.failAt = 1
	w := newWriter(t, 2, bulk.WithTracer(tp.Tracer("test")))

	_, err := w.Insert(t.Context(), q, sampleRows("a", "b", "c"))
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "bulk.chunk", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "bulk.chunk", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "bulk.insert", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, spans[2].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestCorrelate(t *testing.T) {
	rows := []string{"a", "b", "c"}

	entries, err := bulk.Correlate(rows, [][]int{{10, 11}, {12}})
	require.NoError(t, err)
	assert.Equal(t, []bulk.Entry[string, int]{{Row: "a", ID: 10}, {Row: "b", ID: 11}, {Row: "c", ID: 12}}, entries)

	entries, err = bulk.Correlate([]string{}, [][]int{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = bulk.Correlate(rows, [][]int{{10, 11}})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, bulk.CodeCorrelationMismatch))
	assert.Equal(t, errx.T_Internal, errx.AsErrorX(err).Type())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", bulk.StateIdle.String())
	assert.Equal(t, "streaming", bulk.StateStreaming.String())
	assert.Equal(t, "completed", bulk.StateCompleted.String())
	assert.Equal(t, "failed", bulk.StateFailed.String())
}
