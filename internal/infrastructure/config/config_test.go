package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// writeConfigFile writes YAML content to a temp file and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, `
security:
  jwt:
    secret: "`+testJWTSecret+`"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Site.Timezone != "UTC" {
		t.Errorf("default timezone = %q, want UTC", cfg.Site.Timezone)
	}
	if cfg.Automation.IntervalSeconds != 30 {
		t.Errorf("default interval = %d, want 30", cfg.Automation.IntervalSeconds)
	}
	if cfg.Automation.ReadRetries != 5 {
		t.Errorf("default read_retries = %d, want 5", cfg.Automation.ReadRetries)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("default api port = %d, want 8080", cfg.API.Port)
	}
	if cfg.MQTT.Enabled {
		t.Error("mqtt should be disabled by default")
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("default mqtt qos = %d, want 1", cfg.MQTT.QoS)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default log format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Security.JWT.AccessTokenTTL != 60 {
		t.Errorf("default token TTL = %d, want 60", cfg.Security.JWT.AccessTokenTTL)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
site:
  name: "North Wall"
  timezone: "Europe/London"
automation:
  interval_seconds: 10
api:
  port: 9090
  timeouts:
    read: 15
security:
  jwt:
    secret: "`+testJWTSecret+`"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Site.Name != "North Wall" {
		t.Errorf("site name = %q", cfg.Site.Name)
	}
	if cfg.Site.Timezone != "Europe/London" {
		t.Errorf("timezone = %q", cfg.Site.Timezone)
	}
	if cfg.TickInterval() != 10*time.Second {
		t.Errorf("TickInterval = %v, want 10s", cfg.TickInterval())
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api port = %d, want 9090", cfg.API.Port)
	}
	if cfg.API.GetReadTimeout() != 15*time.Second {
		t.Errorf("read timeout = %v, want 15s", cfg.API.GetReadTimeout())
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("GREENHOUSE_DATABASE_PATH", "/var/lib/greenhouse/env.db")
	t.Setenv("GREENHOUSE_API_PORT", "7070")
	t.Setenv("GREENHOUSE_JWT_SECRET", testJWTSecret)

	path := writeConfigFile(t, `
database:
  path: "/tmp/file.db"
api:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/var/lib/greenhouse/env.db" {
		t.Errorf("database path = %q, env override lost", cfg.Database.Path)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("api port = %d, env override lost", cfg.API.Port)
	}
	if cfg.Security.JWT.Secret != testJWTSecret {
		t.Error("jwt secret env override lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWT.Secret = testJWTSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantMsg string
	}{
		{"missing jwt secret", func(cfg *Config) { cfg.Security.JWT.Secret = "" }, "jwt.secret is required"},
		{"short jwt secret", func(cfg *Config) { cfg.Security.JWT.Secret = "tooshort" }, "at least 32 characters"},
		{"missing database path", func(cfg *Config) { cfg.Database.Path = "" }, "database.path is required"},
		{"zero interval", func(cfg *Config) { cfg.Automation.IntervalSeconds = 0 }, "interval_seconds"},
		{"zero retries", func(cfg *Config) { cfg.Automation.ReadRetries = 0 }, "read_retries"},
		{"negative probe ttl", func(cfg *Config) { cfg.Automation.ProbeCacheTTLSeconds = -1 }, "probe_cache_ttl_seconds"},
		{"negative retention", func(cfg *Config) { cfg.Automation.RetentionDays = -1 }, "retention_days"},
		{"port out of range", func(cfg *Config) { cfg.API.Port = 70000 }, "api.port"},
		{"bad qos", func(cfg *Config) { cfg.MQTT.QoS = 3 }, "mqtt.qos"},
		{"bad timezone", func(cfg *Config) { cfg.Site.Timezone = "Mars/Olympus" }, "site.timezone"},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Automation.ProbeCacheTTLSeconds = 45
	cfg.Automation.RetryDelaySeconds = 3

	if cfg.ProbeCacheTTL() != 45*time.Second {
		t.Errorf("ProbeCacheTTL = %v, want 45s", cfg.ProbeCacheTTL())
	}
	if cfg.RetryDelay() != 3*time.Second {
		t.Errorf("RetryDelay = %v, want 3s", cfg.RetryDelay())
	}
	if cfg.API.GetIdleTimeout() != 60*time.Second {
		t.Errorf("GetIdleTimeout = %v, want 60s", cfg.API.GetIdleTimeout())
	}
	if cfg.RetentionPeriod() != 90*24*time.Hour {
		t.Errorf("RetentionPeriod = %v, want 2160h", cfg.RetentionPeriod())
	}
}

func TestLocation(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.Timezone = "Europe/London"
	if cfg.Location().String() != "Europe/London" {
		t.Errorf("Location = %v", cfg.Location())
	}

	cfg.Site.Timezone = "Nowhere/Nonsense"
	if cfg.Location() != time.UTC {
		t.Error("unloadable zone should fall back to UTC")
	}
}
