package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/pgbulk/cfgloader"
)

const baseConfig = `
pg:
  host: localhost
  port: 5432
  user: postgres
  password: secret
  database: pgbulk
`

func loadConfig(t *testing.T, body string) Config {
	t.Helper()
	t.Setenv("ENVIRONMENT", cfgloader.EnvTest)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, cfgloader.EnvTest+".yaml"), []byte(baseConfig+body), 0o600))

	cfg, err := cfgloader.Load[Config](
		cfgloader.WithDir(dir),
		cfgloader.WithSilent(),
		cfgloader.WithEnvFile(filepath.Join(dir, "missing.env")),
	)
	require.NoError(t, err)
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := loadConfig(t, "tracing:\n  disable: true\n")

	assert.False(t, cfg.SkipCreateTable)
	assert.False(t, cfg.Truncate)
	assert.Equal(t, driverPgx, cfg.Driver)
	assert.Equal(t, modeInsert, cfg.Mode)
	assert.Equal(t, 10000, cfg.Rows)
	assert.Equal(t, 1000, cfg.Bulk.ChunkSize)
}

func TestConfigExplicitBools(t *testing.T) {
	cfg := loadConfig(t, `
tracing:
  disable: false
  exporter_host: otel-collector
skip_create_table: true
truncate: false
`)

	assert.False(t, cfg.Tracing.Disable)
	assert.Equal(t, "otel-collector", cfg.Tracing.ExporterHost)
	assert.True(t, cfg.SkipCreateTable)
	assert.False(t, cfg.Truncate)
}
