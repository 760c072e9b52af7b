package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadEnvOverridesAndFallbacks(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VIEW_CACHE_TTL_SECONDS", "0")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("CLINIC_TIMEZONE", "UTC")
	t.Setenv("APP_ENV", " Dev ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.Address())
	}
	if cfg.ViewCacheTTLSeconds != 30 {
		t.Fatalf("expected ttl fallback 30, got %d", cfg.ViewCacheTTLSeconds)
	}
	if cfg.MetricsEnabled {
		t.Fatalf("expected metrics disabled")
	}
	if !cfg.IsDev() {
		t.Fatalf("expected dev env after trimming, got %q", cfg.AppEnv)
	}
	if _, err := cfg.Location(); err != nil {
		t.Fatalf("location: %v", err)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vetpos.yaml")
	if err := os.WriteFile(path, []byte("STOCK_ALERT_SCHEDULE: \"*/5 * * * *\"\nREDIS_DB: 3\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StockAlertSchedule != "*/5 * * * *" || cfg.RedisDB != 3 {
		t.Fatalf("expected values from file, got %+v", cfg)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
