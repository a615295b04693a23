package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LOG_FORMAT", "AUTH_JWT_SECRET", "AUTH_ISSUER",
		"ASSEMBLYAI_API_KEY", "ASSEMBLYAI_BASE_URL", "STORAGE_BACKEND", "S3_BUCKET",
		"S3_ACCESS_KEY", "S3_SECRET_KEY", "HISTORY_DRIVER", "DATABASE_URL",
		"EVENTS_DRIVER", "KAFKA_BROKERS", "NATS_URL", "NATS_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_DefaultsWithRequiredEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Polling.IntervalSeconds != 3 || cfg.Polling.MaxAttempts != 40 {
		t.Errorf("expected 3s/40 polling defaults, got %d/%d", cfg.Polling.IntervalSeconds, cfg.Polling.MaxAttempts)
	}
	if cfg.AssemblyAI.SpeakersExpected != 2 {
		t.Errorf("expected 2 speakers expected, got %d", cfg.AssemblyAI.SpeakersExpected)
	}
	if cfg.History.Driver != "sqlite" || !cfg.History.CreateOnSubmit {
		t.Errorf("unexpected history defaults: %+v", cfg.History)
	}
	if cfg.Events.Driver != "none" {
		t.Errorf("expected events disabled by default, got %s", cfg.Events.Driver)
	}
	if cfg.PollInterval().Seconds() != 3 {
		t.Errorf("expected 3s poll interval, got %s", cfg.PollInterval())
	}
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  port: 9000
auth:
  jwt_secret: from-yaml
assemblyai:
  api_key: yaml-key
  speakers_expected: 3
polling:
  interval_seconds: 5
  max_attempts: 10
history:
  driver: postgres
  dsn: postgres://localhost/history
`)
	t.Setenv("PORT", "9100")
	t.Setenv("ASSEMBLYAI_API_KEY", "env-key")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("expected env port override 9100, got %d", cfg.Server.Port)
	}
	if cfg.AssemblyAI.APIKey != "env-key" {
		t.Errorf("expected env api key, got %s", cfg.AssemblyAI.APIKey)
	}
	if cfg.Auth.JWTSecret != "from-yaml" {
		t.Errorf("expected yaml secret, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.AssemblyAI.SpeakersExpected != 3 {
		t.Errorf("expected 3 speakers, got %d", cfg.AssemblyAI.SpeakersExpected)
	}
	if cfg.Polling.MaxAttempts != 10 {
		t.Errorf("expected 10 attempts, got %d", cfg.Polling.MaxAttempts)
	}
	if cfg.History.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.History.Driver)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already present, even when empty.
	for _, key := range []string{"AUTH_JWT_SECRET", "ASSEMBLYAI_API_KEY", "KAFKA_BROKERS", "EVENTS_DRIVER"} {
		os.Unsetenv(key)
	}
	envFile := writeFile(t, ".env", "AUTH_JWT_SECRET=dotenv-secret\nASSEMBLYAI_API_KEY=dotenv-key\nKAFKA_BROKERS=a:9092,b:9092\nEVENTS_DRIVER=kafka\n")

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.JWTSecret != "dotenv-secret" {
		t.Errorf("expected secret from .env, got %s", cfg.Auth.JWTSecret)
	}
	if len(cfg.Events.Brokers) != 2 || cfg.Events.Brokers[1] != "b:9092" {
		t.Errorf("expected two brokers, got %v", cfg.Events.Brokers)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	clearEnv(t)

	_, err := Load("", "")
	if err == nil {
		t.Fatal("expected validation error without secrets")
	}
	if !strings.Contains(err.Error(), "JWTSecret") {
		t.Errorf("expected error to name JWTSecret, got %v", err)
	}
}

func TestLoad_InvalidPortEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("ASSEMBLYAI_API_KEY", "key")
	t.Setenv("PORT", "notanumber")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port on invalid value, got %d", cfg.Server.Port)
	}
}

func TestValidate_BackendRequirements(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3" }, "s3.bucket"},
		{"gdrive without credentials", func(c *Config) { c.Storage.Backend = "gdrive" }, "google_drive"},
		{"kafka without brokers", func(c *Config) { c.Events.Driver = "kafka" }, "events.brokers"},
		{"nats without url", func(c *Config) { c.Events.Driver = "nats" }, "events.nats_url"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, "Backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Auth.JWTSecret = "secret"
			cfg.AssemblyAI.APIKey = "key"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
