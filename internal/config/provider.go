// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions selects where one Load call reads the tool configuration
// from. Zero-value options follow the normal lookup order: config
// directory, then a config.cue in the working directory, then defaults.
type LoadOptions struct {
	// ConfigFilePath loads exactly this file; the file must exist.
	ConfigFilePath string
	// ConfigDirPath replaces the per-user config directory lookup.
	ConfigDirPath string
}

// Provider is the configuration source the CLI commands resolve through.
// Injecting it lets command tests pin the config directory to a fixture.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider returns the file-backed configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load resolves the effective tool configuration for one invocation.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
