package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tenantdash.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TENANTDASH_PORT")
	setString(&cfg.Server.CORSOrigin, "TENANTDASH_CORS_ORIGIN")
	setDuration(&cfg.Server.ReadTimeout, "TENANTDASH_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "TENANTDASH_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "TENANTDASH_SHUTDOWN_TIMEOUT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TENANTDASH_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TENANTDASH_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TENANTDASH_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TENANTDASH_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TENANTDASH_PG_HEALTH_CHECK")
	setBool(&cfg.Postgres.AutoMigrate, "TENANTDASH_PG_AUTO_MIGRATE")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "TENANTDASH_NATS_STREAM")
	setString(&cfg.Logging.Level, "TENANTDASH_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TENANTDASH_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TENANTDASH_LOG_ASYNC")

	// Auth
	setString(&cfg.Auth.JWTSecret, "TENANTDASH_JWT_SECRET")
	setDuration(&cfg.Auth.TokenLifetime, "TENANTDASH_TOKEN_LIFETIME")
	setString(&cfg.Auth.Issuer, "TENANTDASH_TOKEN_ISSUER")
	setInt(&cfg.Auth.BcryptCost, "TENANTDASH_BCRYPT_COST")
	setInt(&cfg.Auth.MaxConcurrentHashes, "TENANTDASH_MAX_CONCURRENT_HASHES")

	setDuration(&cfg.Storage.Timeout, "TENANTDASH_STORAGE_TIMEOUT")
	setInt(&cfg.Storage.ThemeRetries, "TENANTDASH_THEME_RETRIES")
	setInt(&cfg.Breaker.MaxFailures, "TENANTDASH_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TENANTDASH_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "TENANTDASH_RATE_RPS")
	setInt(&cfg.Rate.Burst, "TENANTDASH_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "TENANTDASH_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "TENANTDASH_RATE_MAX_IDLE_TIME")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "TENANTDASH_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "TENANTDASH_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "TENANTDASH_CACHE_L2_TTL")
	setDuration(&cfg.Cache.SettingsTTL, "TENANTDASH_CACHE_SETTINGS_TTL")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "TENANTDASH_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "TENANTDASH_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "TENANTDASH_OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if len(cfg.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}
	if cfg.Auth.TokenLifetime <= 0 {
		return errors.New("auth.token_lifetime must be > 0")
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.Auth.MaxConcurrentHashes < 0 {
		return errors.New("auth.max_concurrent_hashes must be >= 0")
	}
	if cfg.Storage.Timeout <= 0 {
		return errors.New("storage.timeout must be > 0")
	}
	if cfg.Storage.ThemeRetries < 1 {
		return errors.New("storage.theme_retries must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
