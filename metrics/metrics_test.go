package metrics_test

import (
	"testing"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"

	"github.com/rise-and-shine/pgbulk/metrics"
)

func TestRecorder(t *testing.T) {
	registry := gometrics.NewRegistry()
	r := metrics.NewRecorder(registry)

	r.ChunkCommitted("sample", 100, 10*time.Millisecond)
	r.ChunkCommitted("sample", 50, 30*time.Millisecond)
	r.ChunkFailed("sample", 20*time.Millisecond)
	r.ChunkCommitted("other", 1, time.Millisecond)

	s := r.Snapshot("sample")
	assert.Equal(t, int64(2), s.Chunks)
	assert.Equal(t, int64(150), s.Rows)
	assert.Equal(t, int64(1), s.Failures)
	assert.Equal(t, int64(3), s.Executions)
	assert.Equal(t, 20*time.Millisecond, s.MeanDuration)

	assert.Equal(t, int64(1), r.Snapshot("other").Rows)
	assert.NotNil(t, registry.Get("pgbulk.sample.rows"))
}

func TestNilRecorder(t *testing.T) {
	var r *metrics.Recorder

	assert.NotPanics(t, func() {
		r.ChunkCommitted("sample", 1, time.Millisecond)
		r.ChunkFailed("sample", time.Millisecond)
	})
	assert.Equal(t, metrics.Snapshot{}, r.Snapshot("sample"))
	assert.Nil(t, r.Registry())
}

func TestNewRecorderDefaultsRegistry(t *testing.T) {
	r := metrics.NewRecorder(nil)
	assert.NotNil(t, r.Registry())
}
