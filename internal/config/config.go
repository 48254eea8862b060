package config

import (
	"fmt"
	"time"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
	Selector  SelectorConfig
	TagSet    TagSetConfig
	Log       LogConfig
	Sentry    SentryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`

	// CORSOrigins lists origins allowed to call the API from a browser
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StoreConfig selects the persistence backend and bounds every store call
type StoreConfig struct {
	Driver      string        `mapstructure:"driver"`
	OpTimeout   time.Duration `mapstructure:"op_timeout"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`

	// Circuit breaker around store calls
	BreakerMaxFailures int           `mapstructure:"breaker_max_failures"`
	BreakerCooldown    time.Duration `mapstructure:"breaker_cooldown"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN returns the PostgreSQL connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// SQLiteConfig holds the embedded SQLite configuration
type SQLiteConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Concurrency       int           `mapstructure:"concurrency"`
	QueueDefault      string        `mapstructure:"queue_default"`
	QueueMachine      string        `mapstructure:"queue_machine"`
	SuggestionTimeout time.Duration `mapstructure:"suggestion_timeout"`
}

// SelectorConfig tunes next-item selection
type SelectorConfig struct {
	// LeaseDuration hides a presented item from other callers. Zero disables
	// leasing, and the lowest-confidence machine record is then presented to
	// every caller until a human submits it.
	LeaseDuration time.Duration `mapstructure:"lease_duration"`
	ScanBatchSize int           `mapstructure:"scan_batch_size"`
}

// TagSetConfig tunes optimistic tag-set writes
type TagSetConfig struct {
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	Release          string  `mapstructure:"release"`
	Debug            bool    `mapstructure:"debug"`
	SampleRate       float64 `mapstructure:"sample_rate"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// IsDevelopment returns true if running in development mode
func (c Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}
