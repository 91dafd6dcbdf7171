package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEndpointID(t *testing.T) {
	v := NewValidator()

	t.Run("valid ocid", func(t *testing.T) {
		err := v.ValidateEndpointID("ocid1.genaiagentendpoint.oc1.eu-frankfurt-1.example")
		assert.NoError(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		err := v.ValidateEndpointID("")
		assert.Error(t, err)
	})

	t.Run("wrong prefix", func(t *testing.T) {
		err := v.ValidateEndpointID("endpoint-123")
		assert.Error(t, err)
	})
}

func TestValidateAuthMode(t *testing.T) {
	v := NewValidator()

	t.Run("resource principal", func(t *testing.T) {
		assert.NoError(t, v.ValidateAuthMode(AuthModeResourcePrincipal))
	})

	t.Run("file", func(t *testing.T) {
		assert.NoError(t, v.ValidateAuthMode(AuthModeFile))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, v.ValidateAuthMode("vault"))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Error(t, v.ValidateAuthMode(""))
	})
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"trace", "debug", "info", "warn", "error", "INFO"} {
		assert.NoError(t, v.ValidateLogLevel(level), level)
	}
	assert.Error(t, v.ValidateLogLevel("verbose"))
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Agent.EndpointID = "ocid1.genaiagentendpoint.oc1..abc"
		return cfg
	}

	v := NewValidator()

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, v.ValidateConfig(valid()))
	})

	t.Run("missing endpoint", func(t *testing.T) {
		cfg := valid()
		cfg.Agent.EndpointID = ""
		assert.Error(t, v.ValidateConfig(cfg))
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		assert.Error(t, v.ValidateConfig(cfg))

		cfg.Server.Port = 70000
		assert.Error(t, v.ValidateConfig(cfg))
	})

	t.Run("negative timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Agent.RemoteTimeoutSeconds = -1
		assert.Error(t, v.ValidateConfig(cfg))
	})

	t.Run("negative rate limit", func(t *testing.T) {
		cfg := valid()
		cfg.Server.RateLimitPerMinute = -5
		assert.Error(t, v.ValidateConfig(cfg))
	})
}
