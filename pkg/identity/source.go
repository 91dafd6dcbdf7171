// Package identity owns the process-wide signed identity used for every
// outbound call to the agent runtime. The identity is held as one swappable
// handle: re-acquisition builds a fresh handle and replaces it atomically,
// readers never observe a half-updated one.
package identity

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/common/auth"
)

// Source produces a signed configuration provider. The two production
// implementations are the resource-principal source (ambient platform
// identity, for container/instance deployments) and the file-profile source
// (local OCI config file), selected by configuration.
type Source interface {
	// Provide acquires fresh signing material.
	Provide(ctx context.Context) (common.ConfigurationProvider, error)

	// Name identifies the source in logs.
	Name() string
}

// ResourcePrincipalSource acquires the ambient resource-principal identity.
type ResourcePrincipalSource struct{}

// Provide implements Source.
func (ResourcePrincipalSource) Provide(ctx context.Context) (common.ConfigurationProvider, error) {
	provider, err := auth.ResourcePrincipalConfigurationProvider()
	if err != nil {
		return nil, fmt.Errorf("resource principal signer: %w", err)
	}
	return provider, nil
}

// Name implements Source.
func (ResourcePrincipalSource) Name() string { return "resource_principal" }

// FileProfileSource reads signing material from an OCI configuration file.
type FileProfileSource struct {
	// Path of the config file. Empty means the SDK default (~/.oci/config).
	Path string
	// Profile within the file. Empty means DEFAULT.
	Profile string
	// Passphrase for an encrypted private key, usually empty.
	Passphrase string
}

// Provide implements Source.
func (s FileProfileSource) Provide(ctx context.Context) (common.ConfigurationProvider, error) {
	if s.Path == "" {
		return common.DefaultConfigProvider(), nil
	}
	profile := s.Profile
	if profile == "" {
		profile = "DEFAULT"
	}
	provider, err := common.ConfigurationProviderFromFileWithProfile(s.Path, profile, s.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("config file %s profile %s: %w", s.Path, profile, err)
	}
	return provider, nil
}

// Name implements Source.
func (s FileProfileSource) Name() string { return "file_profile" }
