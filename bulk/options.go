package bulk

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/rise-and-shine/pgbulk/metrics"
	"github.com/rise-and-shine/pgbulk/observability/logger"
)

const defaultChunkSize = 1000

// Option configures a Writer.
type Option func(*options)

type options struct {
	chunkSize      int
	conflictTarget []string
	logger         logger.Logger
	tracer         trace.Tracer
	metrics        *metrics.Recorder
}

// WithChunkSize sets the number of rows per statement. Defaults to 1000.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithConfig applies a yaml Config.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.chunkSize = cfg.ChunkSize
	}
}

// WithConflictTarget sets the upsert conflict columns. Defaults to the schema's key columns.
func WithConflictTarget(columns ...string) Option {
	return func(o *options) {
		o.conflictTarget = columns
	}
}

// WithLogger sets the logger. Defaults to the global logger named "bulk".
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracer sets the tracer used for call and chunk spans. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithMetrics records chunk outcomes into r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) {
		o.metrics = r
	}
}
