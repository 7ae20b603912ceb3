// Package meta_test contains tests for the meta package.
package meta_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/pgbulk/meta"
)

func TestInjectMetaToContext(t *testing.T) {
	tests := []struct {
		name        string
		initialCtx  context.Context
		metaData    map[meta.ContextKey]string
		keyToVerify meta.ContextKey
		valueExpect string
		nilValue    bool
	}{
		{
			name:        "inject single value",
			initialCtx:  t.Context(),
			metaData:    map[meta.ContextKey]string{meta.Table: "sample"},
			keyToVerify: meta.Table,
			valueExpect: "sample",
		},
		{
			name:       "inject multiple values",
			initialCtx: t.Context(),
			metaData: map[meta.ContextKey]string{
				meta.Table:     "sample",
				meta.Operation: "upsert",
				meta.TraceID:   "trace-1",
			},
			keyToVerify: meta.Operation,
			valueExpect: "upsert",
		},
		{
			name:        "skip empty values",
			initialCtx:  t.Context(),
			metaData:    map[meta.ContextKey]string{meta.Table: "", meta.Operation: "insert"},
			keyToVerify: meta.Table,
			nilValue:    true,
		},
		{
			name:        "overwrite existing value",
			initialCtx:  context.WithValue(t.Context(), meta.Table, "old"),
			metaData:    map[meta.ContextKey]string{meta.Table: "new"},
			keyToVerify: meta.Table,
			valueExpect: "new",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := meta.InjectMetaToContext(tc.initialCtx, tc.metaData)

			if tc.nilValue {
				assert.Nil(t, ctx.Value(tc.keyToVerify))
				return
			}
			assert.Equal(t, tc.valueExpect, ctx.Value(tc.keyToVerify))
		})
	}
}

func TestExtractMetaFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctxSetup func() context.Context
		expected map[meta.ContextKey]string
	}{
		{
			name: "extract table and operation",
			ctxSetup: func() context.Context {
				ctx := context.WithValue(t.Context(), meta.Table, "keyless")
				return context.WithValue(ctx, meta.Operation, "insert")
			},
			expected: map[meta.ContextKey]string{
				meta.Table:     "keyless",
				meta.Operation: "insert",
			},
		},
		{
			name: "ignore non-string values",
			ctxSetup: func() context.Context {
				ctx := context.WithValue(t.Context(), meta.TraceID, 12345)
				return context.WithValue(ctx, meta.Table, "sample")
			},
			expected: map[meta.ContextKey]string{meta.Table: "sample"},
		},
		{
			name: "ignore keys outside the predefined list",
			ctxSetup: func() context.Context {
				return context.WithValue(t.Context(), meta.ContextKey("custom"), "value")
			},
			expected: map[meta.ContextKey]string{},
		},
		{
			name:     "empty context",
			ctxSetup: t.Context,
			expected: map[meta.ContextKey]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, meta.ExtractMetaFromContext(tc.ctxSetup()))
		})
	}
}

func TestShouldGetMeta(t *testing.T) {
	value, err := meta.ShouldGetMeta(context.WithValue(t.Context(), meta.Table, "sample"), meta.Table)
	require.NoError(t, err)
	assert.Equal(t, "sample", value)

	_, err = meta.ShouldGetMeta(t.Context(), meta.Table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key not found")

	_, err = meta.ShouldGetMeta(context.WithValue(t.Context(), meta.Table, 1), meta.Table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
}
