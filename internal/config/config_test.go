package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file must not be an error, got %v", err)
	}

	want := Default()
	if cfg.Addr != want.Addr || cfg.NatsURL != want.NatsURL {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Log.Level)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.json")
	content := `{"addr": ":9090", "nats_url": "nats://example:4222", "log": {"level": "debug"}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", cfg.Addr)
	}
	if cfg.NatsURL != "nats://example:4222" {
		t.Errorf("nats_url = %q", cfg.NatsURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadMalformedFileErrorsWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed config file")
	}
	if cfg.Addr != Default().Addr {
		t.Errorf("expected default addr on parse failure, got %q", cfg.Addr)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.json")
	if err := os.WriteFile(path, []byte(`{"addr": ":9090"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("env must override file addr, got %q", cfg.Addr)
	}
	if cfg.NatsURL != "nats://env:4222" {
		t.Errorf("env must override nats url, got %q", cfg.NatsURL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("env must override log level, got %q", cfg.Log.Level)
	}
}
