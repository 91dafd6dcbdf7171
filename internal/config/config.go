package config

import "time"

// Config represents the main agentgate configuration
type Config struct {
	// Agent endpoint settings
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Identity acquisition settings
	Auth AuthConfig `json:"auth" mapstructure:"auth"`

	// HTTP server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// AgentConfig identifies the remote agent endpoint
type AgentConfig struct {
	// EndpointID is the OCID of the agent endpoint. Required.
	EndpointID string `json:"endpoint_id" mapstructure:"endpoint_id"`

	// Region the runtime client talks to, e.g. eu-frankfurt-1. Empty keeps
	// the region resolved from the identity source.
	Region string `json:"region" mapstructure:"region"`

	// RemoteTimeoutSeconds bounds each outbound runtime call. Zero disables.
	RemoteTimeoutSeconds int `json:"remote_timeout_seconds" mapstructure:"remote_timeout_seconds"`
}

// AuthConfig selects and tunes the identity source
type AuthConfig struct {
	// Mode is one of: resource_principal, file
	Mode string `json:"mode" mapstructure:"mode"`

	// ConfigFile is the OCI config file path for file mode. Empty uses the
	// SDK default location.
	ConfigFile string `json:"config_file" mapstructure:"config_file"`

	// Profile within the config file. Empty means DEFAULT.
	Profile string `json:"profile" mapstructure:"profile"`

	// RefreshSchedule is an optional cron spec (e.g. "@every 45m") for
	// proactive credential refresh. Empty disables it.
	RefreshSchedule string `json:"refresh_schedule" mapstructure:"refresh_schedule"`

	// DebounceSeconds skips redundant re-acquisitions completed within the
	// window. Zero disables the debounce.
	DebounceSeconds int `json:"debounce_seconds" mapstructure:"debounce_seconds"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`

	// StaticDir holds the landing page assets
	StaticDir string `json:"static_dir" mapstructure:"static_dir"`

	// RateLimitPerMinute is the per-client request budget. Zero disables.
	RateLimitPerMinute int `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// RemoteTimeout returns the outbound call bound as a duration.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Agent.RemoteTimeoutSeconds) * time.Second
}

// Debounce returns the credential re-acquisition debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Auth.DebounceSeconds) * time.Second
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			RemoteTimeoutSeconds: 60,
		},
		Auth: AuthConfig{
			Mode: "resource_principal",
		},
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8000,
			StaticDir:          "static",
			RateLimitPerMinute: 120,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    false,
			Redaction: true,
		},
	}
}
