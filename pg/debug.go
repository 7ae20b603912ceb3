package pg

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/tracelog"

	"github.com/rise-and-shine/pgbulk/observability/logger"
)

// DebugTracer logs pgx statements through the module logger.
type DebugTracer struct {
	*tracelog.TraceLog

	slowQueryThreshold time.Duration
	logger             logger.Logger
}

// DebugTracerOption configures a DebugTracer.
type DebugTracerOption func(*DebugTracer)

// WithSlowQueryThreshold sets the duration after which a statement is logged at warn level.
// Set to 0 to disable slow statement detection.
func WithSlowQueryThreshold(threshold time.Duration) DebugTracerOption {
	return func(t *DebugTracer) {
		t.slowQueryThreshold = threshold
	}
}

// WithTracerLogger sets the logger. Defaults to the global logger named "pg_debug".
func WithTracerLogger(l logger.Logger) DebugTracerOption {
	return func(t *DebugTracer) {
		t.logger = l
	}
}

// NewDebugTracer returns a pgx tracer suitable for pgx.ConnConfig.Tracer.
func NewDebugTracer(opts ...DebugTracerOption) *DebugTracer {
	t := &DebugTracer{slowQueryThreshold: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Named("pg_debug")
	}

	t.TraceLog = &tracelog.TraceLog{
		Logger:   tracelog.LoggerFunc(t.log),
		LogLevel: tracelog.LogLevelDebug,
	}
	return t
}

func (t *DebugTracer) log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	entry := t.logger.WithContext(ctx)
	if sql, ok := data["sql"].(string); ok {
		entry = entry.With("query", strings.ReplaceAll(sql, `"`, ""))
	}

	duration, _ := data["time"].(time.Duration)
	if duration > 0 {
		entry = entry.With("duration", duration.Round(time.Microsecond))
	}
	if tag, ok := data["commandTag"]; ok {
		entry = entry.With("command_tag", tag)
	}

	isSlow := t.slowQueryThreshold > 0 && duration >= t.slowQueryThreshold

	switch {
	case level <= tracelog.LogLevelError:
		entry.With("error", data["err"]).Error("[pg-debug] - " + msg)
	case level == tracelog.LogLevelWarn, isSlow:
		entry.Warn("[pg-debug] - " + msg)
	default:
		entry.Debug("[pg-debug] - " + msg)
	}
}
