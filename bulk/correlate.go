package bulk

import (
	"github.com/code19m/errx"
	"github.com/samber/lo"
)

// Entry pairs an input row with the id the database generated for it.
type Entry[T, K any] struct {
	Row T
	ID  K
}

// Correlate concatenates the per-chunk id sequences in chunk order and zips them
// positionally onto rows. A total count different from len(rows) means the driver
// broke the order guarantee of RETURNING and is reported as CORRELATION_MISMATCH.
func Correlate[T, K any](rows []T, ids [][]K) ([]Entry[T, K], error) {
	flat := lo.Flatten(ids)
	if len(flat) != len(rows) {
		return nil, errx.New(
			"[bulk]: returned id count does not match row count",
			errx.WithCode(CodeCorrelationMismatch),
			errx.WithType(errx.T_Internal),
			errx.WithDetails(errx.D{"rows": len(rows), "ids": len(flat), "chunks": len(ids)}),
		)
	}

	entries := make([]Entry[T, K], len(rows))
	for i := range rows {
		entries[i] = Entry[T, K]{Row: rows[i], ID: flat[i]}
	}
	return entries, nil
}
