package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for key := range envMappings {
		if value, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, value) })
			os.Unsetenv(key)
		}
	}
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected Server.Host to be 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected Server.Port to be 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Secure {
		t.Error("expected Server.Secure to be false")
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("expected development environment, got %s", cfg.Server.Environment)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Database.DBName != "campussafe" {
		t.Errorf("expected Database.DBName to be campussafe, got %s", cfg.Database.DBName)
	}
	if cfg.Redis.Port != 6379 || cfg.Redis.PoolSize != 10 {
		t.Errorf("unexpected redis defaults: %+v", cfg.Redis)
	}
	if cfg.SMS.DefaultCountryCode != "1" {
		t.Errorf("expected default country code 1, got %q", cfg.SMS.DefaultCountryCode)
	}
	if cfg.SMS.TwilioEnabled() {
		t.Error("expected Twilio to be disabled without credentials")
	}
	if cfg.Auth.GoogleEnabled() {
		t.Error("expected Google sign-in to be disabled without credentials")
	}
	if cfg.Assistant.Model != "gpt-4o-mini" {
		t.Errorf("expected default assistant model, got %q", cfg.Assistant.Model)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_SECURE", "true")
	t.Setenv("DB_NAME", "safety")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_POOL_SIZE", "25")
	t.Setenv("GOOGLE_MAPS_API_KEY", "maps-key")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_FROM_NUMBER", "+15550001111")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Server.Secure {
		t.Error("expected secure cookies")
	}
	if cfg.Database.DBName != "safety" {
		t.Errorf("expected db name safety, got %s", cfg.Database.DBName)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.Redis.DB)
	}
	if cfg.Redis.PoolSize != 25 {
		t.Errorf("expected redis pool size 25, got %d", cfg.Redis.PoolSize)
	}
	if cfg.Maps.GoogleAPIKey != "maps-key" {
		t.Errorf("expected maps key, got %q", cfg.Maps.GoogleAPIKey)
	}
	if !cfg.SMS.TwilioEnabled() {
		t.Error("expected Twilio to be enabled")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 7070\nsms:\n  default_country_code: \"44\"\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SERVER_HOST", "127.0.0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected port from file, got %d", cfg.Server.Port)
	}
	if cfg.SMS.DefaultCountryCode != "44" {
		t.Errorf("expected country code from file, got %q", cfg.SMS.DefaultCountryCode)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected env to override host, got %s", cfg.Server.Host)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "n", SSLMode: "require"}
	want := "postgres://u:p@db:5433/n?sslmode=require"
	if got := d.DSN(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	if got := r.Addr(); got != "cache:6380" {
		t.Fatalf("expected cache:6380, got %s", got)
	}
}

func TestEnvTransform_UnknownKeysIgnored(t *testing.T) {
	if got := envTransform("HOME"); got != "" {
		t.Fatalf("expected unknown key to be ignored, got %q", got)
	}
	if got := envTransform("DB_HOST"); got != "database.host" {
		t.Fatalf("expected database.host, got %q", got)
	}
}
