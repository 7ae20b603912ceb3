package logger

import (
	"context"
	"sync/atomic"
)

//nolint:gochecknoglobals // process wide logger
var global atomic.Pointer[Logger]

// SetGlobal builds the process logger from cfg. It panics on an invalid config,
// since it runs once during startup before anything can be logged.
func SetGlobal(cfg Config) {
	l, err := New(cfg)
	if err != nil {
		panic("[logger]: failed to initialize global logger: " + err.Error())
	}
	global.Store(&l)
}

// ReplaceGlobal installs l as the process logger and returns a function
// restoring the previous one.
func ReplaceGlobal(l Logger) func() {
	prev := global.Swap(&l)
	return func() { global.Store(prev) }
}

// Named returns a child of the global logger.
func Named(name string) Logger { return get().Named(name) }

// WithContext returns the global logger enriched with the meta values in ctx.
func WithContext(ctx context.Context) Logger { return get().WithContext(ctx) }

// Errorx logs err through the global logger.
func Errorx(err error) { get().Errorx(err) }

// Fatalx logs err through the global logger and exits.
func Fatalx(err error) { get().Fatalx(err) }

// Sync flushes the global logger.
func Sync() error { return get().Sync() }

// get returns the global logger. Until SetGlobal runs, a console logger at
// debug level is used.
func get() Logger {
	if l := global.Load(); l != nil {
		return *l
	}

	l, err := New(Config{Level: levelDebug, Encoding: EncodingConsole})
	if err != nil {
		panic("[logger]: failed to initialize default logger: " + err.Error())
	}
	global.CompareAndSwap(nil, &l)
	return *global.Load()
}
