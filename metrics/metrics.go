// Package metrics counts bulk write activity per table.
package metrics

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

const (
	chunksMetric   = "chunks"
	rowsMetric     = "rows"
	failuresMetric = "failures"
	durationMetric = "chunk_duration"
)

// Recorder records chunk outcomes into a go-metrics registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry gometrics.Registry
}

// NewRecorder returns a Recorder over registry. A nil registry gets a fresh one.
func NewRecorder(registry gometrics.Registry) *Recorder {
	if registry == nil {
		registry = gometrics.NewRegistry()
	}
	return &Recorder{registry: registry}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() gometrics.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ChunkCommitted records a successfully executed chunk of rows.
func (r *Recorder) ChunkCommitted(table string, rows int, elapsed time.Duration) {
	if r == nil {
		return
	}
	gometrics.GetOrRegisterCounter(name(table, chunksMetric), r.registry).Inc(1)
	gometrics.GetOrRegisterCounter(name(table, rowsMetric), r.registry).Inc(int64(rows))
	gometrics.GetOrRegisterTimer(name(table, durationMetric), r.registry).Update(elapsed)
}

// ChunkFailed records a chunk rejected by the database.
func (r *Recorder) ChunkFailed(table string, elapsed time.Duration) {
	if r == nil {
		return
	}
	gometrics.GetOrRegisterCounter(name(table, failuresMetric), r.registry).Inc(1)
	gometrics.GetOrRegisterTimer(name(table, durationMetric), r.registry).Update(elapsed)
}

// Snapshot is a point-in-time view of one table's counters.
type Snapshot struct {
	Chunks       int64
	Rows         int64
	Failures     int64
	Executions   int64
	MeanDuration time.Duration
}

// Snapshot returns the current counters of table.
func (r *Recorder) Snapshot(table string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	timer := gometrics.GetOrRegisterTimer(name(table, durationMetric), r.registry)
	return Snapshot{
		Chunks:       gometrics.GetOrRegisterCounter(name(table, chunksMetric), r.registry).Count(),
		Rows:         gometrics.GetOrRegisterCounter(name(table, rowsMetric), r.registry).Count(),
		Failures:     gometrics.GetOrRegisterCounter(name(table, failuresMetric), r.registry).Count(),
		Executions:   timer.Count(),
		MeanDuration: time.Duration(timer.Mean()),
	}
}

func name(table, metric string) string {
	return "pgbulk." + table + "." + metric
}
