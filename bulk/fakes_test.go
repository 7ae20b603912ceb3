package bulk_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rise-and-shine/pgbulk/bulk"
)

type sampleRow struct {
	AutoID int64   `db:"auto_id,auto"`
	Name   string  `db:"name,key"`
	Qty    int32   `db:"qty"`
	Note   *string `db:"note"`
}

type keylessRow struct {
	Name string `db:"name"`
	Qty  int32  `db:"qty"`
}

func sampleRows(names ...string) []sampleRow {
	rows := make([]sampleRow, len(names))
	for i, n := range names {
		rows[i] = sampleRow{Name: n, Qty: int32(i)}
	}
	return rows
}

type call struct {
	stmt   string
	params []any
}

// capturingQuerier records every call. Exec reports the chunk length as affected;
// Query returns sequential ids starting at 1 across calls.
type capturingQuerier struct {
	mu     sync.Mutex
	calls  []call
	nextID int64

	// failAt makes the call with this index fail; -1 disables it.
	failAt int
	// shortAt makes Query return one id less on the call with this index; -1 disables it.
	shortAt int
	// longAt makes Query return one id more on the call with this index; -1 disables it.
	longAt int
	// onCall runs after a call is recorded.
	onCall func(index int)
}

var errBoom = errors.New("duplicate key value violates unique constraint")

func newCapturing() *capturingQuerier {
	return &capturingQuerier{failAt: -1, shortAt: -1, longAt: -1}
}

func (q *capturingQuerier) record(stmt string, params []any) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	index := len(q.calls)
	q.calls = append(q.calls, call{stmt: stmt, params: params})
	if q.onCall != nil {
		q.onCall(index)
	}
	if index == q.failAt {
		return index, errBoom
	}
	return index, nil
}

func (q *capturingQuerier) Exec(_ context.Context, stmt string, params ...any) (int64, error) {
	if _, err := q.record(stmt, params); err != nil {
		return 0, err
	}
	return int64(vectorLen(params)), nil
}

func (q *capturingQuerier) Query(_ context.Context, stmt string, params ...any) (bulk.Rows, error) {
	index, err := q.record(stmt, params)
	if err != nil {
		return nil, err
	}

	n := vectorLen(params)
	switch index {
	case q.shortAt:
		n--
	case q.longAt:
		n++
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]int64, n)
	for i := range ids {
		q.nextID++
		ids[i] = q.nextID
	}
	return &fakeRows{ids: ids, pos: -1}, nil
}

func vectorLen(params []any) int {
	if len(params) == 0 {
		return 0
	}
	switch v := params[0].(type) {
	case []string:
		return len(v)
	default:
		return 0
	}
}

type fakeRows struct {
	ids    []int64
	pos    int
	closed bool
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.ids)
}

func (r *fakeRows) Scan(dest ...any) error {
	p, ok := dest[0].(*int64)
	if !ok {
		return errors.New("unsupported scan target")
	}
	*p = r.ids[r.pos]
	return nil
}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() { r.closed = true }

// upsertStore models a table keyed by name: plain inserts reject existing keys,
// ON CONFLICT DO UPDATE statements overwrite every other column.
type upsertStore struct {
	rows map[string]storedRow
}

type storedRow struct {
	Qty  int32
	Note *string
}

func newUpsertStore() *upsertStore {
	return &upsertStore{rows: map[string]storedRow{}}
}

func (s *upsertStore) Exec(_ context.Context, stmt string, params ...any) (int64, error) {
	names := params[0].([]string)
	qtys := params[1].([]int32)
	notes := params[2].([]*string)
	upsert := strings.Contains(stmt, "ON CONFLICT")

	for _, name := range names {
		if _, exists := s.rows[name]; exists && !upsert {
			return 0, errBoom
		}
	}
	for i, name := range names {
		s.rows[name] = storedRow{Qty: qtys[i], Note: notes[i]}
	}
	return int64(len(names)), nil
}

func (s *upsertStore) Query(context.Context, string, ...any) (bulk.Rows, error) {
	return nil, errors.New("not supported")
}
