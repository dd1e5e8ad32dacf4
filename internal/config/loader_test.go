package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() Config {
	cfg := Defaults()
	cfg.Auth.JWTSecret = testSecret
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Auth.TokenLifetime != time.Hour {
		t.Errorf("expected token lifetime 1h, got %v", cfg.Auth.TokenLifetime)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Errorf("expected bcrypt cost 10, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Storage.Timeout != 3*time.Second {
		t.Errorf("expected storage timeout 3s, got %v", cfg.Storage.Timeout)
	}
	if cfg.Auth.JWTSecret != "" {
		t.Error("defaults must not carry a JWT secret")
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
auth:
  token_lifetime: 30m
  issuer: "dash-test"
cache:
  settings_ttl: 1m
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Auth.TokenLifetime != 30*time.Minute {
		t.Errorf("expected token lifetime 30m, got %v", cfg.Auth.TokenLifetime)
	}
	if cfg.Auth.Issuer != "dash-test" {
		t.Errorf("expected issuer dash-test, got %s", cfg.Auth.Issuer)
	}
	if cfg.Cache.SettingsTTL != time.Minute {
		t.Errorf("expected settings ttl 1m, got %v", cfg.Cache.SettingsTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Storage.Timeout != 3*time.Second {
		t.Errorf("expected default storage timeout, got %v", cfg.Storage.Timeout)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("TENANTDASH_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("TENANTDASH_PG_MAX_CONNS", "25")
	t.Setenv("TENANTDASH_LOG_LEVEL", "warn")
	t.Setenv("TENANTDASH_JWT_SECRET", testSecret)
	t.Setenv("TENANTDASH_TOKEN_LIFETIME", "15m")
	t.Setenv("TENANTDASH_STORAGE_TIMEOUT", "500ms")
	t.Setenv("TENANTDASH_BREAKER_TIMEOUT", "1m")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Auth.JWTSecret != testSecret {
		t.Errorf("expected secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenLifetime != 15*time.Minute {
		t.Errorf("expected token lifetime 15m, got %v", cfg.Auth.TokenLifetime)
	}
	if cfg.Storage.Timeout != 500*time.Millisecond {
		t.Errorf("expected storage timeout 500ms, got %v", cfg.Storage.Timeout)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "zero max_conns",
			modify: func(c *Config) { c.Postgres.MaxConns = 0 },
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "missing jwt secret",
			modify: func(c *Config) { c.Auth.JWTSecret = "" },
			errMsg: "auth.jwt_secret is required",
		},
		{
			name:   "short jwt secret",
			modify: func(c *Config) { c.Auth.JWTSecret = "too-short" },
			errMsg: "auth.jwt_secret must be at least 32 bytes",
		},
		{
			name:   "zero token lifetime",
			modify: func(c *Config) { c.Auth.TokenLifetime = 0 },
			errMsg: "auth.token_lifetime must be > 0",
		},
		{
			name:   "bcrypt cost too low",
			modify: func(c *Config) { c.Auth.BcryptCost = 1 },
			errMsg: "auth.bcrypt_cost must be between 4 and 31",
		},
		{
			name:   "negative hash concurrency",
			modify: func(c *Config) { c.Auth.MaxConcurrentHashes = -1 },
			errMsg: "auth.max_concurrent_hashes must be >= 0",
		},
		{
			name:   "zero storage timeout",
			modify: func(c *Config) { c.Storage.Timeout = 0 },
			errMsg: "storage.timeout must be > 0",
		},
		{
			name:   "zero theme retries",
			modify: func(c *Config) { c.Storage.ThemeRetries = 0 },
			errMsg: "storage.theme_retries must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "sample rate out of range",
			modify: func(c *Config) { c.OTEL.SampleRate = 2 },
			errMsg: "otel.sample_rate must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults with a secret should validate, got %v", err)
	}
}

func TestValidateDefaultsWithoutSecretFails(t *testing.T) {
	cfg := Defaults()
	err := validate(&cfg)
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected jwt_secret error, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags([]string{"--port", "9090", "--log-level", "debug"})
	if err != nil {
		t.Fatal(err)
	}

	if flags.Port == nil || *flags.Port != "9090" {
		t.Errorf("expected port 9090, got %v", flags.Port)
	}
	if flags.LogLevel == nil || *flags.LogLevel != "debug" {
		t.Errorf("expected log-level debug, got %v", flags.LogLevel)
	}
	// Unset flags remain nil
	if flags.DSN != nil {
		t.Errorf("expected nil DSN, got %v", *flags.DSN)
	}
	if flags.NatsURL != nil {
		t.Errorf("expected nil NatsURL, got %v", *flags.NatsURL)
	}
	if flags.ConfigPath != nil {
		t.Errorf("expected nil ConfigPath, got %v", *flags.ConfigPath)
	}
}

func TestParseFlagsShorthand(t *testing.T) {
	flags, err := ParseFlags([]string{"-p", "7070", "-c", "custom.yaml"})
	if err != nil {
		t.Fatal(err)
	}

	if flags.Port == nil || *flags.Port != "7070" {
		t.Errorf("expected port 7070, got %v", flags.Port)
	}
	if flags.ConfigPath == nil || *flags.ConfigPath != "custom.yaml" {
		t.Errorf("expected config custom.yaml, got %v", flags.ConfigPath)
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	_, err := ParseFlags([]string{"--unknown-flag"})
	if err == nil {
		t.Error("expected error for unknown flag, got nil")
	}
}

func TestApplyCLINilFlags(t *testing.T) {
	cfg := Defaults()
	original := cfg

	// All-nil flags should change nothing.
	applyCLI(&cfg, CLIFlags{})

	if cfg.Server.Port != original.Server.Port {
		t.Errorf("port changed from %s to %s", original.Server.Port, cfg.Server.Port)
	}
	if cfg.Logging.Level != original.Logging.Level {
		t.Errorf("log level changed from %s to %s", original.Logging.Level, cfg.Logging.Level)
	}
}

func TestCLIOverridesEnv(t *testing.T) {
	t.Setenv("TENANTDASH_JWT_SECRET", testSecret)
	t.Setenv("TENANTDASH_PORT", "7070")
	t.Setenv("TENANTDASH_LOG_LEVEL", "warn")

	flags, err := ParseFlags([]string{"--port", "3333", "--log-level", "error", "--config", "/nonexistent.yaml"})
	if err != nil {
		t.Fatal(err)
	}

	cfg, path, err := LoadWithCLI(flags)
	if err != nil {
		t.Fatal(err)
	}

	if path != "/nonexistent.yaml" {
		t.Errorf("expected resolved path /nonexistent.yaml, got %s", path)
	}
	if cfg.Server.Port != "3333" {
		t.Errorf("expected CLI port 3333 to override ENV 7070, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected CLI log-level error to override ENV warn, got %s", cfg.Logging.Level)
	}
}
