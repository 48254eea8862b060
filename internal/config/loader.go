package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Optionally read from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/labelflow")

	// Ignore error if config file not found
	_ = v.ReadInConfig()

	cfg := fromViper(v)

	// Validate required fields
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	var cfg Config

	// Server
	cfg.Server.Host = v.GetString("server_host")
	cfg.Server.Port = v.GetInt("server_port")
	cfg.Server.Env = v.GetString("server_env")
	cfg.Server.CORSOrigins = v.GetStringSlice("server_cors_origins")

	// Store
	cfg.Store.Driver = strings.ToLower(v.GetString("store_driver"))
	cfg.Store.OpTimeout = v.GetDuration("store_op_timeout")
	cfg.Store.AutoMigrate = v.GetBool("store_auto_migrate")
	cfg.Store.BreakerMaxFailures = v.GetInt("store_breaker_max_failures")
	cfg.Store.BreakerCooldown = v.GetDuration("store_breaker_cooldown")

	// PostgreSQL
	cfg.Postgres.Host = v.GetString("postgres_host")
	cfg.Postgres.Port = v.GetInt("postgres_port")
	cfg.Postgres.User = v.GetString("postgres_user")
	cfg.Postgres.Password = v.GetString("postgres_password")
	cfg.Postgres.Database = v.GetString("postgres_db")
	cfg.Postgres.SSLMode = v.GetString("postgres_ssl_mode")
	cfg.Postgres.MaxConns = int32(v.GetInt("postgres_max_conns"))
	cfg.Postgres.MinConns = int32(v.GetInt("postgres_min_conns"))

	// SQLite
	cfg.SQLite.DSN = v.GetString("sqlite_dsn")

	// Redis
	cfg.Redis.Host = v.GetString("redis_host")
	cfg.Redis.Port = v.GetInt("redis_port")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.Redis.DB = v.GetInt("redis_db")

	// Rate Limiting
	cfg.RateLimit.Enabled = v.GetBool("rate_limit_enabled")
	cfg.RateLimit.RequestsPerMinute = v.GetInt("rate_limit_requests_per_minute")

	// Worker
	cfg.Worker.Enabled = v.GetBool("worker_enabled")
	cfg.Worker.Concurrency = v.GetInt("worker_concurrency")
	cfg.Worker.QueueDefault = v.GetString("worker_queue_default")
	cfg.Worker.QueueMachine = v.GetString("worker_queue_machine")
	cfg.Worker.SuggestionTimeout = v.GetDuration("worker_suggestion_timeout")

	// Selector
	cfg.Selector.LeaseDuration = v.GetDuration("selector_lease_duration")
	cfg.Selector.ScanBatchSize = v.GetInt("selector_scan_batch_size")

	// Tag set writes
	cfg.TagSet.MaxRetries = uint64(v.GetInt("tagset_max_retries"))
	cfg.TagSet.InitialInterval = v.GetDuration("tagset_initial_interval")

	// Logging
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")

	// Sentry
	cfg.Sentry.Enabled = v.GetBool("sentry_enabled")
	cfg.Sentry.DSN = v.GetString("sentry_dsn")
	cfg.Sentry.Environment = v.GetString("sentry_environment")
	cfg.Sentry.Release = v.GetString("sentry_release")
	cfg.Sentry.Debug = v.GetBool("sentry_debug")
	cfg.Sentry.SampleRate = v.GetFloat64("sentry_sample_rate")
	cfg.Sentry.TracesSampleRate = v.GetFloat64("sentry_traces_sample_rate")
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = cfg.Server.Env
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_env", "development")
	v.SetDefault("server_cors_origins", []string{"*"})

	// Store defaults
	v.SetDefault("store_driver", StoreDriverPostgres)
	v.SetDefault("store_op_timeout", "5s")
	v.SetDefault("store_auto_migrate", true)
	v.SetDefault("store_breaker_max_failures", 5)
	v.SetDefault("store_breaker_cooldown", "30s")

	// PostgreSQL defaults
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "labelflow")
	v.SetDefault("postgres_password", "labelflow")
	v.SetDefault("postgres_db", "labelflow")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("postgres_max_conns", 25)
	v.SetDefault("postgres_min_conns", 5)

	// SQLite defaults
	v.SetDefault("sqlite_dsn", "file:labelflow.db?_pragma=busy_timeout(5000)")

	// Redis defaults
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	// Rate limiting defaults
	v.SetDefault("rate_limit_enabled", false)
	v.SetDefault("rate_limit_requests_per_minute", 600)

	// Worker defaults
	v.SetDefault("worker_enabled", true)
	v.SetDefault("worker_concurrency", 10)
	v.SetDefault("worker_queue_default", "default")
	v.SetDefault("worker_queue_machine", "machine")
	v.SetDefault("worker_suggestion_timeout", "2m")

	// Selector defaults
	v.SetDefault("selector_lease_duration", "5m")
	v.SetDefault("selector_scan_batch_size", 200)

	// Tag set defaults
	v.SetDefault("tagset_max_retries", 5)
	v.SetDefault("tagset_initial_interval", "10ms")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Sentry defaults
	v.SetDefault("sentry_enabled", false)
	v.SetDefault("sentry_sample_rate", 1.0)
	v.SetDefault("sentry_traces_sample_rate", 0.1)
}

func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case StoreDriverPostgres, StoreDriverSQLite:
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.OpTimeout <= 0 {
		return fmt.Errorf("store op timeout must be positive")
	}
	if cfg.Selector.LeaseDuration < 0 {
		return fmt.Errorf("selector lease duration must not be negative")
	}
	if cfg.Selector.ScanBatchSize <= 0 {
		return fmt.Errorf("selector scan batch size must be positive")
	}
	if cfg.Sentry.Enabled && cfg.Sentry.DSN == "" {
		return fmt.Errorf("sentry DSN is required when sentry is enabled")
	}
	return nil
}
