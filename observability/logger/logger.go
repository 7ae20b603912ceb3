// Package logger is the structured logger used by the bulk writer and its adapters.
//
// It wraps zap behind a small interface: key/value pairs go through With or the
// variadic tail of each level method, errx errors are expanded into error_code,
// error_type, error_trace and error_details fields by the *x methods, and
// WithContext copies the meta values (table, operation, trace id) of a context.
package logger

import (
	"context"
	"errors"

	"github.com/code19m/errx"
	"go.uber.org/zap"

	"github.com/rise-and-shine/pgbulk/meta"
)

// Logger is the logging interface accepted by every package of the module.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	// Warnx logs err at warn level with its errx code, type, trace and details.
	Warnx(err error)
	// Errorx logs err at error level with its errx code, type, trace and details.
	Errorx(err error)
	// Fatalx logs err like Errorx and then calls os.Exit(1).
	Fatalx(err error)

	With(keysAndValues ...any) Logger
	// WithContext returns a child logger carrying the meta values found in ctx.
	WithContext(ctx context.Context) Logger
	Named(name string) Logger

	Sync() error
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// New builds a Logger from cfg.
func New(cfg Config) (Logger, error) {
	if cfg.Disable {
		return NewNop(), nil
	}

	zapConfig, err := cfg.getZapConfig()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	z, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return FromZap(z), nil
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return FromZap(zap.NewNop())
}

// FromZap wraps an existing zap logger, e.g. one built on zaptest/observer.
func FromZap(z *zap.Logger) Logger {
	return &zapLogger{s: z.Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }

func (l *zapLogger) Info(msg string, kv ...any) { l.s.Infow(msg, kv...) }

func (l *zapLogger) Warn(msg string, kv ...any) { l.s.Warnw(msg, kv...) }

func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) Warnx(err error) { l.s.Warnw(err.Error(), errorFields(err)...) }

func (l *zapLogger) Errorx(err error) { l.s.Errorw(err.Error(), errorFields(err)...) }

func (l *zapLogger) Fatalx(err error) { l.s.Fatalw(err.Error(), errorFields(err)...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}

	values := meta.ExtractMetaFromContext(ctx)
	if len(values) == 0 {
		return l
	}

	kv := make([]any, 0, 2*len(values))
	for k, v := range values {
		kv = append(kv, string(k), v)
	}
	return l.With(kv...)
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{s: l.s.Named(name)}
}

func (l *zapLogger) Sync() error {
	return l.s.Sync()
}

// errorFields returns the errx fields of err, or nothing for plain errors.
func errorFields(err error) []any {
	var e errx.ErrorX
	if !errors.As(err, &e) {
		return nil
	}
	return []any{
		"error_code", e.Code(),
		"error_type", e.Type().String(),
		"error_trace", e.Trace(),
		"error_details", e.Details(),
	}
}
