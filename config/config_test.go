package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SALIENCE_DECAY_LOG_LEVEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.URL != DefaultDatabaseURL {
		t.Errorf("unexpected default database url: %q", cfg.Database.URL)
	}
	if cfg.Decay.IntervalMS != 900_000 {
		t.Errorf("unexpected default interval: %d", cfg.Decay.IntervalMS)
	}
	if cfg.Decay.BatchSize != 100 {
		t.Errorf("unexpected default batch size: %d", cfg.Decay.BatchSize)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("unexpected default log level: %q", cfg.Log.Level)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte(`
decay:
  interval_ms: 60000
  context_override: low_activity
embedding:
  dim: 768
`)
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Decay.IntervalMS != 60_000 {
		t.Errorf("interval not overridden: %d", cfg.Decay.IntervalMS)
	}
	if cfg.Decay.ContextOverride != "low_activity" {
		t.Errorf("context override not read: %q", cfg.Decay.ContextOverride)
	}
	if cfg.Embedding.Dim != 768 {
		t.Errorf("embedding dim not overridden: %d", cfg.Embedding.Dim)
	}
	// Untouched keys keep their defaults.
	if cfg.Decay.BatchSize != 100 {
		t.Errorf("batch size should keep default, got %d", cfg.Decay.BatchSize)
	}
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  url: postgres://file/db\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("SALIENCE_DECAY_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.URL != "postgres://env/db" {
		t.Errorf("env should win over file, got %q", cfg.Database.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level env not applied: %q", cfg.Log.Level)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("decay: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}
