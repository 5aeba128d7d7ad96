package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_StartupFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	logFile := filepath.Join(dir, "logs", "portal.log")

	cfgPath := filepath.Join(dir, "config.yaml")
	body := "jwt:\n  secret: test-secret\n" +
		"log:\n  file: " + logFile + "\n" +
		"backup:\n  dir: " + filepath.Join(blocker, "backups") + "\n" +
		"database:\n  path: " + filepath.Join(dir, "data", "portal.db") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	t.Setenv("FP_CONFIG", cfgPath)

	err := run()
	require.Error(t, err)

	logged, readErr := os.ReadFile(logFile)
	require.NoError(t, readErr)
	assert.Contains(t, string(logged), "create backup dir")
}

func TestEnsureDir(t *testing.T) {
	assert.NoError(t, ensureDir(""))
	assert.NoError(t, ensureDir("."))

	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, ensureDir(dir))
	assert.DirExists(t, dir)
}
