package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/heyrt/config"
)

func TestDefaultIsInfoLevelWithNoCapacityHint(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, 0, cfg.InitialClassCapacity)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heyrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initialClassCapacity: 32\nlogLevel: debug\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 32, cfg.InitialClassCapacity)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSlogLevelMapping(t *testing.T) {
	require.Equal(t, "DEBUG", config.Config{LogLevel: "debug"}.SlogLevel().String())
	require.Equal(t, "WARN", config.Config{LogLevel: "warn"}.SlogLevel().String())
	require.Equal(t, "ERROR", config.Config{LogLevel: "error"}.SlogLevel().String())
	require.Equal(t, "INFO", config.Config{LogLevel: "nonsense"}.SlogLevel().String())
}
