package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Server.Port, cfg.Server.Port)
	assert.Equal(t, defaults.Auth.Mode, cfg.Auth.Mode)
	assert.Equal(t, defaults.Logging.Level, cfg.Logging.Level)
	assert.Empty(t, cfg.Agent.EndpointID)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentgate.json")
	content := `{
		"agent": {
			"endpoint_id": "ocid1.genaiagentendpoint.oc1..abc",
			"region": "eu-frankfurt-1",
			"remote_timeout_seconds": 30
		},
		"auth": {"mode": "file", "profile": "DEV"},
		"server": {"port": 9000},
		"logging": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ocid1.genaiagentendpoint.oc1..abc", cfg.Agent.EndpointID)
	assert.Equal(t, "eu-frankfurt-1", cfg.Agent.Region)
	assert.Equal(t, 30, cfg.Agent.RemoteTimeoutSeconds)
	assert.Equal(t, AuthModeFile, cfg.Auth.Mode)
	assert.Equal(t, "DEV", cfg.Auth.Profile)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultConfig().Server.Host, cfg.Server.Host)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AGENTGATE_AGENT_ENDPOINT_ID", "ocid1.genaiagentendpoint.oc1..env")
	t.Setenv("AGENTGATE_AUTH_MODE", "file")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, "ocid1.genaiagentendpoint.oc1..env", cfg.Agent.EndpointID)
	assert.Equal(t, AuthModeFile, cfg.Auth.Mode)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentgate.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "/tmp/x.json", NewLoader("/tmp/x.json").GetConfigPath())
	assert.NotEmpty(t, NewLoader("").GetConfigPath())
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agent.RemoteTimeoutSeconds = 30
	cfg.Auth.DebounceSeconds = 10

	assert.Equal(t, "30s", cfg.RemoteTimeout().String())
	assert.Equal(t, "10s", cfg.Debounce().String())
}
