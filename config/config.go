// Package config loads the runtime's construction-time options
// (spec.md §6 "Configuration options recognised at runtime
// construction") from a YAML document, matching the teacher's use of
// struct tags for shape-described configuration (wudi-hey/vm's
// DebugLevel-style option enum), generalized from the teacher's
// command-line flags to a file-based config the host loads once before
// building a Runtime.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the zero-or-more option set a host may supply when
// constructing a Runtime.
type Config struct {
	// InitialClassCapacity is spec.md §6's `initial_class_capacity`
	// hint: the number of user classes to preallocate room for in the
	// class table. Zero means "implementation-defined default".
	InitialClassCapacity int `yaml:"initialClassCapacity"`

	// LogLevel names the minimum level the runtime's structured logger
	// emits: one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"logLevel"`
}

// Default returns the zero-config case: no capacity hint, info-level
// logging.
func Default() Config {
	return Config{InitialClassCapacity: 0, LogLevel: "info"}
}

// Load reads and parses a YAML config document from path, filling in
// Default()'s values for anything the document omits.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel's textual name to a slog.Level, defaulting
// to Info for an unrecognised or empty value.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
