package config

// ============================================================================
// Config Test File
// Purpose: Verify YAML loading, zero-value default backfill, and bad-path errors
// ============================================================================

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemist/chemist/pkg/types"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 2000, cfg.History.PlatformCapacity)
	assert.Equal(t, 2000, cfg.History.RepoCapacity)
	assert.Equal(t, 500, cfg.History.ErrorCapacity)
	assert.Equal(t, 3, cfg.Lifecycle.AttemptThreshold)
	assert.Equal(t, string(types.StateFin), cfg.Lifecycle.TerminalState)
	assert.Equal(t, 256, cfg.Executor.QueueSize)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
history:
  error_capacity: 50
lifecycle:
  attempt_threshold: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.History.ErrorCapacity)
	assert.Equal(t, 5, cfg.Lifecycle.AttemptThreshold)
	// Fields left unset in the file fall back to Defaults().
	assert.Equal(t, 2000, cfg.History.PlatformCapacity)
	assert.Equal(t, 2000, cfg.History.RepoCapacity)
	assert.Equal(t, string(types.StateFin), cfg.Lifecycle.TerminalState)
	assert.Equal(t, 256, cfg.Executor.QueueSize)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
