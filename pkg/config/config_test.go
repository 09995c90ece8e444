package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/membufio/membuf/internal/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Membuf.Enable {
		t.Error("membuf must be disabled by default")
	}
	if cfg.Logging.Level != "INFO" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Stream.ReadSize != 64*bytesize.KiB {
		t.Errorf("read_size default = %d, want %d", cfg.Stream.ReadSize, 64*bytesize.KiB)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
membuf:
  enable: true

logging:
  level: DEBUG
  format: json

stream:
  read_size: 16Ki

api:
  enabled: true
  listen: 127.0.0.1:9999
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Membuf.Enable {
		t.Error("enable not picked up from file")
	}
	if cfg.Logging.Level != "DEBUG" || cfg.Logging.Format != "json" {
		t.Errorf("logging not picked up: %+v", cfg.Logging)
	}
	if cfg.Stream.ReadSize != 16*bytesize.KiB {
		t.Errorf("read_size = %d, want %d", cfg.Stream.ReadSize, 16*bytesize.KiB)
	}
	if cfg.API.Listen != "127.0.0.1:9999" {
		t.Errorf("api.listen = %q", cfg.API.Listen)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MEMBUF_MEMBUF_ENABLE", "true")
	t.Setenv("MEMBUF_LOGGING_LEVEL", "WARN")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Membuf.Enable {
		t.Error("env enable override ignored")
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("env level override ignored: %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: NOISY
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for bad level")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate_APIListen(t *testing.T) {
	cfg := Default()
	cfg.API.Enabled = true
	cfg.API.Listen = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error: api enabled without listen address")
	}
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "membuf.yaml")
	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "membuf:") {
		t.Errorf("example config missing membuf section:\n%s", data)
	}

	// Round-trip: the example must load cleanly.
	if _, err := Load(path); err != nil {
		t.Errorf("example config does not load: %v", err)
	}

	if err := WriteExample(path); err == nil {
		t.Error("expected error when file exists")
	}
}
