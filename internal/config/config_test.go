package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected default redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Storage.UploadDir != "./uploads" || cfg.Storage.OutputDir != "./outputs" {
		t.Errorf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Tools.ServiceURL != "" {
		t.Errorf("tools service must default to unconfigured, got %s", cfg.Tools.ServiceURL)
	}
	if cfg.Tools.Timeout != 600 {
		t.Errorf("expected tools timeout 600, got %d", cfg.Tools.Timeout)
	}
	if cfg.RateLimit.UploadPerHour != 50 {
		t.Errorf("expected 50 uploads per hour, got %d", cfg.RateLimit.UploadPerHour)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("TOOLS_SERVICE_URL", "http://tools:9000")
	t.Setenv("RATELIMIT_UPLOAD_PER_HOUR", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("expected redis:6379, got %s", cfg.Redis.Addr)
	}
	if cfg.Tools.ServiceURL != "http://tools:9000" {
		t.Errorf("expected tools url override, got %s", cfg.Tools.ServiceURL)
	}
	if cfg.RateLimit.UploadPerHour != 5 {
		t.Errorf("expected 5 uploads per hour, got %d", cfg.RateLimit.UploadPerHour)
	}
}

func TestReadSecretFromFile(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "redis_password")
	if err := os.WriteFile(secretFile, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatalf("failed to write secret file: %v", err)
	}

	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_PASSWORD_FILE", secretFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.Password != "s3cret" {
		t.Errorf("expected secret loaded from file, got %q", cfg.Redis.Password)
	}
}

func TestReadSecretDirectValueWins(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "redis_password")
	if err := os.WriteFile(secretFile, []byte("from-file"), 0o600); err != nil {
		t.Fatalf("failed to write secret file: %v", err)
	}

	t.Setenv("REDIS_PASSWORD", "direct")
	t.Setenv("REDIS_PASSWORD_FILE", secretFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.Password != "direct" {
		t.Errorf("expected direct value to win, got %q", cfg.Redis.Password)
	}
}
