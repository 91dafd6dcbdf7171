package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment. Environment
// variables use the AGENTGATE_ prefix with underscores for nesting, e.g.
// AGENTGATE_AGENT_ENDPOINT_ID.
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	v := viper.New()
	v.SetConfigType("json")

	// Register every key so environment-only deployments work without a
	// config file on disk.
	defaults := DefaultConfig()
	v.SetDefault("agent.endpoint_id", defaults.Agent.EndpointID)
	v.SetDefault("agent.region", defaults.Agent.Region)
	v.SetDefault("agent.remote_timeout_seconds", defaults.Agent.RemoteTimeoutSeconds)
	v.SetDefault("auth.mode", defaults.Auth.Mode)
	v.SetDefault("auth.config_file", defaults.Auth.ConfigFile)
	v.SetDefault("auth.profile", defaults.Auth.Profile)
	v.SetDefault("auth.refresh_schedule", defaults.Auth.RefreshSchedule)
	v.SetDefault("auth.debounce_seconds", defaults.Auth.DebounceSeconds)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.static_dir", defaults.Server.StaticDir)
	v.SetDefault("server.rate_limit_per_minute", defaults.Server.RateLimitPerMinute)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.pretty", defaults.Logging.Pretty)
	v.SetDefault("logging.redaction", defaults.Logging.Redaction)

	v.SetEnvPrefix("AGENTGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	return defaultConfigPath()
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "agentgate.json"
	}
	return filepath.Join(home, ".agentgate", "agentgate.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
