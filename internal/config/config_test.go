package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadConfigAppliesDefaultsAndEnv(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
jwt:
  secret: test-secret
`)
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "redis.internal")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Server.Port)
	}
	if cfg.Progress.Stream != "assessment:completions" {
		t.Fatalf("expected default stream, got %q", cfg.Progress.Stream)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Host != "redis.internal" {
		t.Fatalf("expected redis env overrides, got %+v", cfg.Redis)
	}
	if cfg.RateLimit.Window().Minutes() != 1 {
		t.Fatalf("expected 1 minute window, got %v", cfg.RateLimit.Window())
	}
}

func TestLoadConfigRejectsShortSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
database:
  driver: sqlite
jwt:
  secret: short
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatalf("expected short secret to be rejected in release mode")
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: oracle
jwt:
  secret: test-secret
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatalf("expected unknown driver to be rejected")
	}
}
