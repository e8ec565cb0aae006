// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidRepository is returned when a repositories entry is empty or duplicated.
	ErrInvalidRepository = errors.New("invalid repository entry")
	// ErrInvalidExternalName is returned when an externals key is whitespace-only.
	ErrInvalidExternalName = errors.New("invalid external capability name")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not
	// recognized. It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// ExternalEntry declares one external capability for the availability
	// probe. Names are case-sensitive; a list entry with available omitted
	// means present.
	ExternalEntry struct {
		// Name is the capability name as referenced by
		// required_optional_external rules.
		Name string `mapstructure:"name"`
		// Available reports whether the capability is present.
		Available bool `mapstructure:"available"`
	}

	// UIConfig holds terminal presentation preferences.
	UIConfig struct {
		// ColorScheme selects the rendering palette.
		ColorScheme ColorScheme `mapstructure:"color_scheme"`
		// Verbose enables debug-level logging.
		Verbose bool `mapstructure:"verbose"`
	}

	// Config is the application configuration.
	Config struct {
		// Repositories are nested directories searched for modules in
		// addition to the distribution root.
		Repositories []string `mapstructure:"repositories"`
		// BuildInfo is the path to the dependency rule store, relative to
		// the distribution root unless absolute.
		BuildInfo string `mapstructure:"build_info"`
		// IgnoreMissing names modules whose absence is tolerated.
		IgnoreMissing []string `mapstructure:"ignore_missing"`
		// Externals is the static availability table for
		// required_optional_external checks.
		Externals []ExternalEntry `mapstructure:"externals"`
		// LockFile is where the resolved graph snapshot is written.
		LockFile string `mapstructure:"lock_file"`
		// UI holds terminal presentation preferences.
		UI UIConfig `mapstructure:"ui"`
	}
)

func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("%v: %q (valid: auto, dark, light)", ErrInvalidColorScheme, e.Value)
}

func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%v: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate reports whether the color scheme is one of the known values.
func (s ColorScheme) Validate() error {
	switch s {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: s}
	}
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Repositories: []string{"cctbx_project"},
		BuildInfo:    "build_info.cue",
		LockFile:     "tbxgraph.lock.cue",
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}

// Validate checks constraints that CUE cannot express: repository entry
// uniqueness and non-emptiness, and external capability key shape. Field
// errors are collected rather than returned one at a time.
func (c *Config) Validate() error {
	var fieldErrors []error

	if err := c.UI.ColorScheme.Validate(); err != nil {
		fieldErrors = append(fieldErrors, err)
	}

	seen := make(map[string]bool, len(c.Repositories))
	for i, repo := range c.Repositories {
		if strings.TrimSpace(repo) == "" {
			fieldErrors = append(fieldErrors, fmt.Errorf("%w: repositories[%d] is empty", ErrInvalidRepository, i))
			continue
		}
		if seen[repo] {
			fieldErrors = append(fieldErrors, fmt.Errorf("%w: repositories[%d] duplicates %q", ErrInvalidRepository, i, repo))
		}
		seen[repo] = true
	}

	seenExternals := make(map[string]bool, len(c.Externals))
	for i, ext := range c.Externals {
		if strings.TrimSpace(ext.Name) == "" {
			fieldErrors = append(fieldErrors, fmt.Errorf("%w: externals[%d] has an empty name", ErrInvalidExternalName, i))
			continue
		}
		if seenExternals[ext.Name] {
			fieldErrors = append(fieldErrors, fmt.Errorf("%w: externals[%d] duplicates %q", ErrInvalidExternalName, i, ext.Name))
		}
		seenExternals[ext.Name] = true
	}

	if len(fieldErrors) > 0 {
		return &InvalidConfigError{FieldErrors: fieldErrors}
	}
	return nil
}

// Probe flattens the externals list into the availability table consumed
// by the resolver.
func (c *Config) Probe() map[string]bool {
	table := make(map[string]bool, len(c.Externals))
	for _, ext := range c.Externals {
		table[ext.Name] = ext.Available
	}
	return table
}
