package main

import (
	"github.com/rise-and-shine/pgbulk/bulk"
	"github.com/rise-and-shine/pgbulk/observability/logger"
	"github.com/rise-and-shine/pgbulk/observability/tracing"
	"github.com/rise-and-shine/pgbulk/pg"
)

const (
	driverPgx = "pgx"
	driverPq  = "pq"

	modeInsert          = "insert"
	modeUpsert          = "upsert"
	modeInsertReturning = "insert_returning"
)

// Config is loaded from config/${ENVIRONMENT}.yaml.
type Config struct {
	Logger  logger.Config  `yaml:"logger"`
	Tracing tracing.Config `yaml:"tracing"`
	PG      pg.Config      `yaml:"pg"`
	Bulk    bulk.Config    `yaml:"bulk"`

	// Driver selects the database capability: pgx (pgxpool) or pq (database/sql with lib/pq).
	Driver string `yaml:"driver" default:"pgx" validate:"oneof=pgx pq"`
	// SkipCreateTable skips the CREATE TABLE IF NOT EXISTS run for the demo table before writing.
	SkipCreateTable bool `yaml:"skip_create_table" default:"false"`
	// Truncate deletes every row of the demo table before writing.
	Truncate bool `yaml:"truncate" default:"false"`
	// Rows is the number of sample rows to generate.
	Rows int `yaml:"rows" default:"10000" validate:"min=0"`
	// Mode is one of insert, upsert or insert_returning.
	Mode string `yaml:"mode" default:"insert" validate:"oneof=insert upsert insert_returning"`
}
