// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tbxtools/tbxgraph/pkg/cueutil"
)

const (
	// DescriptorName is the per-module configuration file.
	DescriptorName = "libtbx_config"
	// RefreshScriptName marks a module with a pre-build regeneration step.
	RefreshScriptName = "libtbx_refresh.py"
	// CommandLineDir marks a module that ships command-line entry points.
	CommandLineDir = "command_line"
	// BootstrapModule is the module everything implicitly depends on.
	BootstrapModule = "libtbx"
)

// descriptorKeys are the recognized libtbx_config entries. Anything else
// in a descriptor produces an unknown-key warning.
var descriptorKeys = map[string]bool{
	"modules_required_for_build": true,
	"modules_required_for_use":   true,
	"optional_modules":           true,
	"targets":                    true,
	"exclude_from_binary_bundle": true,
}

// Module is one discovered source unit: a directory, typically an
// independently versioned working copy. Immutable after a scan completes.
type Module struct {
	// Name is the unique module identifier (directory base name).
	Name string
	// Path is the module location relative to the distribution root,
	// slash-separated.
	Path string
	// AbsPath is the absolute on-disk location.
	AbsPath string
	// Targets are the buildable units the descriptor declares, in
	// declaration order.
	Targets []string
	// Required are module names this module cannot build without
	// (modules_required_for_build ∪ modules_required_for_use).
	Required []string
	// Optional are module names added opportunistically when present.
	Optional []string
	// HasRefresh reports a libtbx_refresh.py regeneration script.
	HasRefresh bool
	// Forced is set when the location came from a forced_locations rule
	// rather than positional discovery.
	Forced bool
}

// descriptor is the decoded libtbx_config content before normalization.
// The files are JSON-with-trailing-commas dictionaries, a dialect CUE
// accepts directly.
type descriptor struct {
	raw map[string]any
}

// looksLikeModule reports whether a directory has anything identifying it
// as a module: a descriptor, a refresh script, or a command_line directory.
func looksLikeModule(dir string) bool {
	if fileExists(filepath.Join(dir, DescriptorName)) {
		return true
	}
	if fileExists(filepath.Join(dir, RefreshScriptName)) {
		return true
	}
	if info, err := os.Stat(filepath.Join(dir, CommandLineDir)); err == nil && info.IsDir() {
		return true
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// parseDescriptor reads and decodes a module's libtbx_config. The returned
// diagnostics carry unknown-key warnings; a parse failure is returned as a
// diagnostic too (the module stays in the inventory without targets, per
// the original's lenient handling).
func parseDescriptor(path string) (*descriptor, []Diagnostic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	raw, err := cueutil.CompileAndDecode[map[string]any](data, path)
	if err != nil {
		return nil, nil, err
	}

	var diags []Diagnostic
	for key := range *raw {
		if !descriptorKeys[key] {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeUnknownDescriptorKey,
				Message:  fmt.Sprintf("unknown %s key %q", DescriptorName, key),
				Path:     path,
			})
		}
	}
	return &descriptor{raw: *raw}, diags, nil
}

// names extracts a string list value from the descriptor, accepting a
// single name as shorthand for a one-element list.
func (d *descriptor) names(key string) ([]string, error) {
	value, ok := d.raw[key]
	if !ok {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s: expected string entries, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected a name or list of names, got %T", key, value)
	}
}

// apply fills a module's dependency and target fields from its descriptor.
func (d *descriptor) apply(m *Module) error {
	forBuild, err := d.names("modules_required_for_build")
	if err != nil {
		return err
	}
	forUse, err := d.names("modules_required_for_use")
	if err != nil {
		return err
	}
	optional, err := d.names("optional_modules")
	if err != nil {
		return err
	}
	targets, err := d.names("targets")
	if err != nil {
		return err
	}

	m.Required = dedupe(append(forBuild, forUse...))
	m.Optional = dedupe(optional)
	m.Targets = dedupe(targets)
	return nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
