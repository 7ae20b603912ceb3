package pg

import (
	"strconv"
	"strings"
	"time"
)

// Config describes a PostgreSQL connection shared by the pgx and lib/pq capabilities.
type Config struct {
	Host     string `yaml:"host"     validate:"required"`
	Port     int    `yaml:"port"     validate:"required"`
	User     string `yaml:"user"     validate:"required"`
	Password string `yaml:"password" validate:"required" mask:"true"`
	Database string `yaml:"database" validate:"required"`

	// SSLMode is one of disable, allow, prefer, require, verify-ca, verify-full.
	SSLMode        string        `yaml:"sslmode"         default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	SearchPath     string        `yaml:"search_path"     default:"public"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`

	Debug DebugConfig `yaml:"debug"`
	Pool  PoolConfig  `yaml:"pool"`
	Retry RetryConfig `yaml:"retry"`
}

// DebugConfig controls statement logging through the pgx tracer.
type DebugConfig struct {
	Enabled bool `yaml:"enabled" default:"false"`
	// SlowQueryThreshold raises statements slower than this to warn level. Zero disables it.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" default:"500ms"`
}

// PoolConfig sizes the connection pool. Bulk writes run sequentially, so a
// small pool is enough.
type PoolConfig struct {
	MaxConns        int32         `yaml:"max_conns"          default:"4"`
	MinConns        int32         `yaml:"min_conns"          default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" default:"30m"`
}

// RetryConfig controls the initial ping.
type RetryConfig struct {
	Attempts uint          `yaml:"attempts" default:"5"  validate:"min=1"`
	Delay    time.Duration `yaml:"delay"    default:"1s"`
}

// DSN returns a keyword/value connection string accepted by both pgx and lib/pq.
// Values are quoted when they contain spaces, quotes or backslashes.
func (c Config) DSN() string {
	pairs := [][2]string{
		{"host", c.Host},
		{"port", strconv.Itoa(c.Port)},
		{"user", c.User},
		{"password", c.Password},
		{"dbname", c.Database},
		{"sslmode", c.SSLMode},
		{"search_path", c.SearchPath},
		{"connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds()))},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		parts = append(parts, p[0]+"="+dsnValue(p[1]))
	}
	return strings.Join(parts, " ")
}

func dsnValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
