package cli

// ============================================================================
// CLI Test File
// Purpose: Verify flag parsing, config overrides, and feed/status subcommands
// ============================================================================

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd)
	assert.Equal(t, "chemist", cmd.Use)
	assert.Equal(t, "1.0.0", cmd.Version)

	commands := cmd.Commands()
	assert.Len(t, commands, 3)

	names := make(map[string]bool)
	for _, c := range commands {
		names[c.Use] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["status"])

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestBuildRunCommand(t *testing.T) {
	cmd := buildRunCommand()
	assert.Equal(t, "run", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestBuildFeedCommand(t *testing.T) {
	cmd := buildFeedCommand()
	assert.Equal(t, "feed", cmd.Use)

	fileFlag := cmd.Flags().Lookup("file")
	require.NotNil(t, fileFlag)
	assert.Equal(t, "f", fileFlag.Shorthand)
}

func TestBuildStatusCommand(t *testing.T) {
	cmd := buildStatusCommand()
	assert.Equal(t, "status", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestLoadCfgUsesDefaultsWhenUnset(t *testing.T) {
	configFile = ""
	cfg, err := loadCfg()
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.History.PlatformCapacity)
}

func TestLoadCfgReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lifecycle:\n  attempt_threshold: 7\n"), 0o644))

	configFile = path
	defer func() { configFile = "" }()

	cfg, err := loadCfg()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Lifecycle.AttemptThreshold)
}

func TestFeedEventsInvalidFile(t *testing.T) {
	configFile = ""
	err := feedEvents("/nonexistent/events.json")
	assert.Error(t, err)
}

func TestFeedEventsInvalidJSON(t *testing.T) {
	configFile = ""
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := feedEvents(path)
	assert.Error(t, err)
}

func TestFeedEventsDrivesRepository(t *testing.T) {
	configFile = ""
	dir := t.TempDir()
	path := filepath.Join(dir, "events.json")

	events := []feedEventInput{
		{Kind: "NewTarget", URI: "u1"},
	}
	data, err := json.Marshal(events)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	assert.NoError(t, feedEvents(path))
}

func TestShowStatusWithoutRunningRepository(t *testing.T) {
	configFile = ""
	globalRepo = nil
	assert.NoError(t, showStatus())
}

func TestDisplayOrDefault(t *testing.T) {
	assert.Equal(t, "(built-in defaults)", displayOrDefault(""))
	assert.Equal(t, "/tmp/x.yaml", displayOrDefault("/tmp/x.yaml"))
}
