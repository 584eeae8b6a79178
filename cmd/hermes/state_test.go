package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/logger"
	"hermes/pkg/models"
	"hermes/pkg/storage"
)

// runHermes executes the root command with args and restores global flag state afterwards
func runHermes(t *testing.T, args ...string) error {
	t.Helper()
	t.Cleanup(func() {
		configFile, statePath = "", ""
		clearYes, quiet = false, false
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func seedState(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("discovery:\n  target_length: 4\n"), 0644))

	state := filepath.Join(dir, "found.json")
	backend := storage.NewJSONBackend(state, logger.NewNopLogger())
	snap := &models.Snapshot{Accounts: []models.UserAccount{
		models.NewUserAccount("abcd", "First", 10, false, ""),
		models.NewUserAccount("wxyz", "Second", 20, true, ""),
	}}
	require.NoError(t, backend.Save(context.Background(), snap))
	return cfgPath, state
}

func TestClearRequiresConfirmation(t *testing.T) {
	cfgPath, state := seedState(t)
	before, err := os.ReadFile(state)
	require.NoError(t, err)

	err = runHermes(t, "--quiet", "--config", cfgPath, "--state", state, "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	after, err := os.ReadFile(state)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestClearWithConfirmationEmptiesState(t *testing.T) {
	cfgPath, state := seedState(t)

	require.NoError(t, runHermes(t, "--quiet", "--config", cfgPath, "--state", state, "clear", "--yes"))

	data, err := os.ReadFile(state)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.JSONEq(t, `[]`, string(doc["usernames"]))
	assert.JSONEq(t, `[]`, string(doc["users"]))

	snap, err := storage.NewJSONBackend(state, logger.NewNopLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Accounts)
}
