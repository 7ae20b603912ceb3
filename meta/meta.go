// Package meta carries bulk write metadata through context.
//
// Values stored here are picked up by the logger's WithContext so that every
// log line written while a bulk call is running names the table and operation
// it belongs to.
package meta

import (
	"context"
	"fmt"
	"sync"
)

// ContextKey is a type for keys used in context values for metadata.
type ContextKey string

const (
	// TraceID correlates log lines with the active trace.
	TraceID ContextKey = "trace_id"

	// Table is the target table of the running bulk call.
	Table ContextKey = "table"

	// Operation is the bulk operation name, e.g. "insert" or "upsert".
	Operation ContextKey = "operation"

	// ServiceName identifies the name of current running service.
	ServiceName ContextKey = "service_name"

	// ServiceVersion indicates the version of the service.
	ServiceVersion ContextKey = "service_version"
)

//nolint:gochecknoglobals // ordered key list shared by extraction
var allKeys = []ContextKey{TraceID, Table, Operation, ServiceName, ServiceVersion}

var (
	serviceName    string    //nolint:gochecknoglobals // set once at startup
	serviceVersion string    //nolint:gochecknoglobals // set once at startup
	once           sync.Once //nolint:gochecknoglobals // ensures SetServiceInfo is called once
)

// SetServiceInfo sets the global service name and version.
// Subsequent calls are ignored.
func SetServiceInfo(name, version string) {
	once.Do(func() {
		serviceName = name
		serviceVersion = version
	})
}

// GetServiceName returns the global service name.
func GetServiceName() string {
	return serviceName
}

// GetServiceVersion returns the global service version.
func GetServiceVersion() string {
	return serviceVersion
}

// InjectMetaToContext adds metadata from the provided map to the context.
// Empty values are skipped.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext returns every non-empty predefined key found in ctx.
// The service name and version fall back to the values set by SetServiceInfo.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range allKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	if _, ok := data[ServiceName]; !ok && serviceName != "" {
		data[ServiceName] = serviceName
	}
	if _, ok := data[ServiceVersion]; !ok && serviceVersion != "" {
		data[ServiceVersion] = serviceVersion
	}
	return data
}

// ShouldGetMeta returns the string stored under key or an error when it is
// missing or not a string.
func ShouldGetMeta(ctx context.Context, key ContextKey) (string, error) {
	v := ctx.Value(key)
	if v == nil {
		return "", fmt.Errorf("meta: key not found: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("meta: type mismatch for key %s: %T", key, v)
	}
	return s, nil
}
