package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Queue.Capacity != 256 {
		t.Fatalf("Expected queue capacity 256, got %d", cfg.Queue.Capacity)
	}
	if cfg.Streams.PropertyBuffer != 64 || cfg.Streams.ErrorBuffer != 16 {
		t.Fatalf("Unexpected stream buffers: %+v", cfg.Streams)
	}
	if cfg.Engine.Backend != "scene" {
		t.Fatalf("Expected scene backend, got %q", cfg.Engine.Backend)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("Expected info level, got %q", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
queue:
  capacity: 32
logging:
  level: debug
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Queue.Capacity != 32 {
		t.Fatalf("Expected capacity 32, got %d", cfg.Queue.Capacity)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Expected debug level, got %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Streams.PropertyBuffer != 64 {
		t.Fatalf("Expected default property buffer, got %d", cfg.Streams.PropertyBuffer)
	}
	if cfg.Engine.Backend != "scene" {
		t.Fatalf("Expected default backend, got %q", cfg.Engine.Backend)
	}
}

func TestParse_WasmBackend(t *testing.T) {
	cfg, err := Parse([]byte(`
engine:
  backend: wasm
  module: engine.wasm
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Engine.Backend != "wasm" || cfg.Engine.Module != "engine.wasm" {
		t.Fatalf("Unexpected engine config: %+v", cfg.Engine)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "queue: [", "parse config"},
		{"negative capacity", "queue:\n  capacity: -1", "queue.capacity"},
		{"negative property buffer", "streams:\n  property_buffer: -1", "streams.property_buffer"},
		{"negative error buffer", "streams:\n  error_buffer: -4", "streams.error_buffer"},
		{"unknown backend", "engine:\n  backend: native", "engine.backend"},
		{"wasm without module", "engine:\n  backend: wasm", "engine.module"},
		{"unknown level", "logging:\n  level: loud", "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte("queue:\n  capacity: 8\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Queue.Capacity != 8 {
		t.Fatalf("Expected capacity 8, got %d", cfg.Queue.Capacity)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
