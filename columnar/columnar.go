// Package columnar transposes row records into chunked column vectors.
package columnar

import (
	"iter"
	"reflect"

	"github.com/code19m/errx"
	"github.com/samber/lo"

	"github.com/rise-and-shine/pgbulk/schema"
)

// Batch is one chunk of rows in column-major form.
type Batch struct {
	// Index is the 0-based chunk number.
	Index int
	// Offset is the position of the chunk's first row in the input.
	Offset int
	// Len is the number of rows in the chunk.
	Len int
	// Columns holds one typed slice per column ([]string, []int32, []*time.Time, ...),
	// each of length Len, in column order.
	Columns []any
}

// Column returns the i-th column vector as a reflect.Value.
func (b Batch) Column(i int) reflect.Value {
	return reflect.ValueOf(b.Columns[i])
}

// Transpose partitions rows into runs of chunkSize and projects each column
// across every run. The returned sequence is lazy and may be ranged over
// more than once; rows are only read.
func Transpose[T any](cols []schema.Column, rows []T, chunkSize int) (iter.Seq[Batch], error) {
	if chunkSize < 1 {
		return nil, errx.New(
			"[columnar]: chunk size must be at least 1",
			errx.WithCode(CodeInvalidConfiguration),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"chunk_size": chunkSize}),
		)
	}

	return func(yield func(Batch) bool) {
		offset := 0
		for index, chunk := range lo.Chunk(rows, chunkSize) {
			if !yield(build(cols, chunk, index, offset)) {
				return
			}
			offset += len(chunk)
		}
	}, nil
}

// Count returns the number of batches Transpose produces for n rows.
func Count(n, chunkSize int) int {
	if n <= 0 || chunkSize < 1 {
		return 0
	}
	return (n + chunkSize - 1) / chunkSize
}

func build[T any](cols []schema.Column, chunk []T, index, offset int) Batch {
	vectors := make([]reflect.Value, len(cols))
	for i, c := range cols {
		vectors[i] = reflect.MakeSlice(reflect.SliceOf(c.GoType()), len(chunk), len(chunk))
	}

	for r := range chunk {
		rv := reflect.ValueOf(&chunk[r]).Elem()
		for i, c := range cols {
			vectors[i].Index(r).Set(c.FieldOf(rv))
		}
	}

	return Batch{
		Index:   index,
		Offset:  offset,
		Len:     len(chunk),
		Columns: lo.Map(vectors, func(v reflect.Value, _ int) any { return v.Interface() }),
	}
}
