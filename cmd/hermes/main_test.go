package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/config"
)

func TestExampleConfigLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	state := filepath.Join(t.TempDir(), "found.json")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(exampleConfig, state)), 0644))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	defaults := config.DefaultConfig()
	assert.Equal(t, defaults.Discovery.TargetLength, cfg.Discovery.TargetLength)
	assert.Equal(t, defaults.Discovery.TrendingInterval, cfg.Discovery.TrendingInterval)
	assert.Equal(t, defaults.Discovery.ProfileURLPattern, cfg.Discovery.ProfileURLPattern)
	assert.Equal(t, defaults.Gateway, cfg.Gateway)
	assert.Equal(t, state, cfg.Storage.Path)
}

func TestCommandFlagsOnlyIncludesChangedFlags(t *testing.T) {
	t.Cleanup(func() {
		targetLength, useTUI, quiet = 0, false, false
	})

	require.NoError(t, rootCmd.ParseFlags([]string{"--target-length", "3", "--tui=false"}))
	flags := commandFlags(rootCmd)

	assert.Equal(t, 3, flags["target-length"])
	assert.Equal(t, false, flags["tui"])
	assert.NotContains(t, flags, "proxy-file")
	assert.NotContains(t, flags, "notifications")
	assert.NotContains(t, flags, "log-level")
}

func TestPersistConfigWritesOnlyTheChange(t *testing.T) {
	old := configFile
	configFile = filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Cleanup(func() { configFile = old })

	require.NoError(t, persistConfig(func(cfg *config.Config) {
		cfg.Discovery.TargetLength = 5
	}, "done"))

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configFile))
	assert.Equal(t, 5, cfg.Discovery.TargetLength)

	require.NoError(t, persistConfig(func(cfg *config.Config) {
		cfg.Storage.Path = "/tmp/other.json"
	}, "done"))

	cfg = config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configFile))
	assert.Equal(t, 5, cfg.Discovery.TargetLength, "earlier change is kept")
	assert.Equal(t, "/tmp/other.json", cfg.Storage.Path)

	assert.Error(t, persistConfig(func(cfg *config.Config) {
		cfg.Discovery.TargetLength = 9
	}, "done"))
}
