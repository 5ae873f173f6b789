package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Tenancy  TenancyConfig  `yaml:"tenancy"`
	Sweep    SweepConfig    `yaml:"sweep"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min" env:"SERVER_RATE_LIMIT_PER_MIN" env-default:"600"`
}

// CORSConfig holds Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Content-Type,X-Request-Id,X-Actor-Id,X-Actor-Email"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// DatabaseConfig holds connection settings for the shared administrative
// PostgreSQL database (tenancy registry, soft-delete ledger, shared-scope
// documents).
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// TenancyConfig holds settings for resolving and opening per-tenant
// backends. UserDSNTemplate must contain one %s verb that receives the
// user id when a personal-scope database is opened lazily.
type TenancyConfig struct {
	UserDSNTemplate string        `yaml:"user_dsn_template" env:"TENANCY_USER_DSN_TEMPLATE"`
	DocumentRoot    string        `yaml:"document_root"     env:"TENANCY_DOCUMENT_ROOT"     env-default:"/var/lib/taskrail/tenants"`
	StepTimeout     time.Duration `yaml:"step_timeout"      env:"TENANCY_STEP_TIMEOUT"      env-default:"5s"`
	TenantMaxConns  int32         `yaml:"tenant_max_conns"  env:"TENANCY_TENANT_MAX_CONNS"  env-default:"5"`
}

// SweepConfig holds expiry sweeper settings. The recovery window itself is
// a fixed domain constant and intentionally has no config knob.
type SweepConfig struct {
	Interval time.Duration `yaml:"interval"  env:"SWEEP_INTERVAL"  env-default:"1h"`
	PageSize int           `yaml:"page_size" env:"SWEEP_PAGE_SIZE" env-default:"500"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
