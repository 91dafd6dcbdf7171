package config

import (
	"fmt"
	"strings"
)

// AuthModeResourcePrincipal uses the ambient platform identity.
const AuthModeResourcePrincipal = "resource_principal"

// AuthModeFile reads signing material from an OCI config file.
const AuthModeFile = "file"

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEndpointID validates the agent endpoint OCID. A missing endpoint is
// a fatal initialization condition for the whole session subsystem.
func (v *Validator) ValidateEndpointID(id string) error {
	if id == "" {
		return fmt.Errorf("agent endpoint id cannot be empty (set agent.endpoint_id or AGENTGATE_AGENT_ENDPOINT_ID)")
	}
	if !strings.HasPrefix(id, "ocid1.") {
		return fmt.Errorf("invalid agent endpoint id format (should start with ocid1.)")
	}
	return nil
}

// ValidateAuthMode validates the identity source selector
func (v *Validator) ValidateAuthMode(mode string) error {
	switch mode {
	case AuthModeResourcePrincipal, AuthModeFile:
		return nil
	default:
		return fmt.Errorf("invalid auth mode %q (must be %s or %s)", mode, AuthModeResourcePrincipal, AuthModeFile)
	}
}

// ValidateLogLevel validates the log level
func (v *Validator) ValidateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q", level)
	}
}

// ValidateConfig validates the whole configuration
func (v *Validator) ValidateConfig(cfg *Config) error {
	if err := v.ValidateEndpointID(cfg.Agent.EndpointID); err != nil {
		return err
	}
	if err := v.ValidateAuthMode(cfg.Auth.Mode); err != nil {
		return err
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Agent.RemoteTimeoutSeconds < 0 {
		return fmt.Errorf("remote timeout cannot be negative")
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	return nil
}
