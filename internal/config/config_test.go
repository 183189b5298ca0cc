package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":8080" {
		t.Errorf("unexpected listen %q", cfg.Listen)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("unexpected storage type %q", cfg.Storage.Type)
	}
	if cfg.Timing.CacheTTL != 5*time.Second {
		t.Errorf("unexpected cache ttl %v", cfg.Timing.CacheTTL)
	}
	if cfg.Timing.MaxAge != 24*time.Hour {
		t.Errorf("unexpected max age %v", cfg.Timing.MaxAge)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: ":9999"
storage:
  type: sqlite
  path: /tmp/games.db
allowed_origins:
  - example.com
logging:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("unexpected listen %q", cfg.Listen)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.Path != "/tmp/games.db" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if len(cfg.Origins) != 1 || cfg.Origins[0] != "example.com" {
		t.Errorf("unexpected origins %v", cfg.Origins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("unexpected log level %q", cfg.Logging.Level)
	}
	if cfg.Instance.ID == "" {
		t.Error("instance id not generated")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("unexpected listen %q", cfg.Listen)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ALLOWED_ORIGINS", "a.example.com, b.example.com")
	t.Setenv("PORT", "7777")
	t.Setenv("INSTANCE_ID", "inst-7")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Storage.Type != "redis" {
		t.Errorf("REDIS_URL should flip storage to redis, got %q", cfg.Storage.Type)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("unexpected redis url %q", cfg.Redis.URL)
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "b.example.com" {
		t.Errorf("unexpected origins %v", cfg.Origins)
	}
	if cfg.Listen != ":7777" {
		t.Errorf("unexpected listen %q", cfg.Listen)
	}
	if cfg.Instance.ID != "inst-7" {
		t.Errorf("unexpected instance id %q", cfg.Instance.ID)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("unexpected log level %q", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Type = "cassandra"
	if err := cfg.validate(); err == nil {
		t.Error("expected error for unknown storage type")
	}

	cfg = Default()
	cfg.Storage.Type = "redis"
	if err := cfg.validate(); err == nil {
		t.Error("expected error for redis storage without url")
	}
}

func TestOriginAllowed(t *testing.T) {
	cfg := Default()
	cfg.Origins = []string{"example.com", "*.play.example.org"}

	cases := map[string]bool{
		"https://example.com":          true,
		"https://example.com:8443":     true,
		"http://evil.com":              false,
		"https://eu.play.example.org":  true,
		"https://play.example.org":     true,
		"https://notplay.example.org":  false,
		"https://sub.example.com":      false,
	}
	for origin, want := range cases {
		if got := cfg.OriginAllowed(origin); got != want {
			t.Errorf("OriginAllowed(%q) = %v, want %v", origin, got, want)
		}
	}

	open := Default()
	if !open.OriginAllowed("http://anything.at.all") {
		t.Error("empty allow list should allow everything")
	}

	star := Default()
	star.Origins = []string{"*"}
	if !star.OriginAllowed("http://anything.at.all") {
		t.Error("* should allow everything")
	}
}
