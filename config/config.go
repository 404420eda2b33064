package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sceneforge/scene-bridge/errors"
)

// Config is the root configuration structure for the bridge.
type Config struct {
	Queue   QueueConfig   `yaml:"queue"`
	Streams StreamConfig  `yaml:"streams"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// QueueConfig sizes the command queue.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// StreamConfig sizes the client-side broadcast buffers.
type StreamConfig struct {
	PropertyBuffer int `yaml:"property_buffer"`
	ErrorBuffer    int `yaml:"error_buffer"`
}

// EngineConfig selects and parameterizes the engine implementation.
type EngineConfig struct {
	// Backend is "scene" for the reference engine or "wasm" for a
	// wazero-hosted engine module.
	Backend string `yaml:"backend"`

	// Module is the path to the engine .wasm artifact. Required for the
	// wasm backend.
	Module string `yaml:"module"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Queue:   QueueConfig{Capacity: 256},
		Streams: StreamConfig{PropertyBuffer: 64, ErrorBuffer: 16},
		Engine:  EngineConfig{Backend: "scene"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads and validates a YAML configuration file. Unset fields keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = d.Queue.Capacity
	}
	if c.Streams.PropertyBuffer == 0 {
		c.Streams.PropertyBuffer = d.Streams.PropertyBuffer
	}
	if c.Streams.ErrorBuffer == 0 {
		c.Streams.ErrorBuffer = d.Streams.ErrorBuffer
	}
	if c.Engine.Backend == "" {
		c.Engine.Backend = d.Engine.Backend
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// Validate rejects nonsensical values.
func (c *Config) Validate() error {
	if c.Queue.Capacity < 0 {
		return errors.InvalidConfig("queue.capacity", "must not be negative")
	}
	if c.Streams.PropertyBuffer < 0 {
		return errors.InvalidConfig("streams.property_buffer", "must not be negative")
	}
	if c.Streams.ErrorBuffer < 0 {
		return errors.InvalidConfig("streams.error_buffer", "must not be negative")
	}
	switch c.Engine.Backend {
	case "scene":
	case "wasm":
		if c.Engine.Module == "" {
			return errors.InvalidConfig("engine.module", "required for the wasm backend")
		}
	default:
		return errors.InvalidConfig("engine.backend", fmt.Sprintf("unknown backend %q", c.Engine.Backend))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.InvalidConfig("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	return nil
}
