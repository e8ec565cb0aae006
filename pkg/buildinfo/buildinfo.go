// SPDX-License-Identifier: MPL-2.0

package buildinfo

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/tbxtools/tbxgraph/pkg/cueutil"
)

// ScopeAll is the special key under optional_dependencies and
// required_optional_external that applies to every target implicitly.
const ScopeAll = "all"

//go:embed buildinfo_schema.cue
var schemaBytes []byte

type (
	// SchemaError reports a malformed build-info entry. It names the
	// offending key so the document can be fixed directly.
	SchemaError struct {
		// Document is the file the entry came from.
		Document string
		// Key is the offending document key (possibly dotted).
		Key string
		// Cause is the underlying validation error.
		Cause error
	}

	// RefreshManifest is one module's generated-file expectation: either an
	// explicit file list, or the self-managed sentinel (libtbx_refresh: true).
	RefreshManifest struct {
		// SelfManaged means the module registers its own generation and no
		// explicit file list is checked.
		SelfManaged bool
		// Files are module-root-relative paths produced by the refresh step.
		Files []string
	}

	// BuildInfo is the validated, normalized rule store. All lookups are
	// keyed by target or module name; values are ordered, de-duplicated.
	BuildInfo struct {
		dependencies             map[string][]string
		optionalDependencies     map[string][]string
		requiredOptionalExternal map[string][]string
		forcedLocations          map[string]string
		targetIncludes           map[string][]IncludePath
		refresh                  map[string]RefreshManifest
		otherGenerated           []string
		definitions              map[string][]string
	}

	// rawDocument mirrors the document shape before union normalization.
	// Name-or-list values land as any (string or []any) under the schema.
	rawDocument struct {
		Dependencies             map[string]any    `json:"dependencies"`
		OptionalDependencies     map[string]any    `json:"optional_dependencies"`
		RequiredOptionalExternal map[string]any    `json:"required_optional_external"`
		ForcedLocations          map[string]string `json:"forced_locations"`
		TargetIncludes           map[string]any    `json:"target_includes"`
		LibtbxRefresh            map[string]any    `json:"libtbx_refresh"`
		OtherGenerated           []string          `json:"other_generated"`
		Definitions              map[string]any    `json:"definitions"`
	}
)

func (e *SchemaError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: invalid entry %q: %v", e.Document, e.Key, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Document, e.Cause)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Load reads and validates a build-info document from disk.
func Load(path string) (*BuildInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build info: %w", err)
	}
	return Parse(data, path)
}

// Parse validates a build-info document against the embedded schema and
// normalizes it into typed lookup tables.
func Parse(data []byte, filename string) (*BuildInfo, error) {
	raw, err := cueutil.Decode[rawDocument](schemaBytes, data, "#BuildInfo", cueutil.WithFilename(filename))
	if err != nil {
		return nil, &SchemaError{Document: filename, Cause: err}
	}

	info := &BuildInfo{
		forcedLocations: raw.ForcedLocations,
		otherGenerated:  raw.OtherGenerated,
	}
	if info.forcedLocations == nil {
		info.forcedLocations = map[string]string{}
	}

	if info.dependencies, err = normalizeNameMap(raw.Dependencies, filename, "dependencies"); err != nil {
		return nil, err
	}
	if err := rejectAllScope(info.dependencies, filename, "dependencies"); err != nil {
		return nil, err
	}
	if info.optionalDependencies, err = normalizeNameMap(raw.OptionalDependencies, filename, "optional_dependencies"); err != nil {
		return nil, err
	}
	if info.requiredOptionalExternal, err = normalizeNameMap(raw.RequiredOptionalExternal, filename, "required_optional_external"); err != nil {
		return nil, err
	}
	if info.definitions, err = normalizeNameMap(raw.Definitions, filename, "definitions"); err != nil {
		return nil, err
	}
	if err := rejectAllScope(info.definitions, filename, "definitions"); err != nil {
		return nil, err
	}

	rawIncludes, err := normalizeNameMap(raw.TargetIncludes, filename, "target_includes")
	if err != nil {
		return nil, err
	}
	if err := rejectAllScope(rawIncludes, filename, "target_includes"); err != nil {
		return nil, err
	}
	info.targetIncludes = make(map[string][]IncludePath, len(rawIncludes))
	for name, paths := range rawIncludes {
		parsed := make([]IncludePath, 0, len(paths))
		for _, raw := range paths {
			p, err := ParseIncludePath(raw)
			if err != nil {
				return nil, &SchemaError{Document: filename, Key: "target_includes." + name, Cause: err}
			}
			parsed = append(parsed, p)
		}
		info.targetIncludes[name] = parsed
	}

	info.refresh = make(map[string]RefreshManifest, len(raw.LibtbxRefresh))
	for name, value := range raw.LibtbxRefresh {
		manifest, err := normalizeRefresh(value)
		if err != nil {
			return nil, &SchemaError{Document: filename, Key: "libtbx_refresh." + name, Cause: err}
		}
		info.refresh[name] = manifest
	}

	return info, nil
}

// rejectAllScope fails the load when the "all" scope key appears under a
// category that gives it no meaning; accepting it would drop the entry
// without a trace.
func rejectAllScope[V any](m map[string]V, doc, section string) error {
	if _, ok := m[ScopeAll]; ok {
		return &SchemaError{
			Document: doc,
			Key:      section + "." + ScopeAll,
			Cause: fmt.Errorf("the %q scope is only valid under optional_dependencies and required_optional_external",
				ScopeAll),
		}
	}
	return nil
}

// normalizeNameMap converts "name or list of names" union values into
// ordered, de-duplicated slices.
func normalizeNameMap(raw map[string]any, doc, section string) (map[string][]string, error) {
	out := make(map[string][]string, len(raw))
	for key, value := range raw {
		names, err := normalizeNames(value)
		if err != nil {
			return nil, &SchemaError{Document: doc, Key: section + "." + key, Cause: err}
		}
		out[key] = names
	}
	return out, nil
}

func normalizeNames(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []any:
		seen := make(map[string]bool, len(v))
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			if !seen[s] {
				seen[s] = true
				names = append(names, s)
			}
		}
		return names, nil
	case []string:
		return normalizeStringSlice(v), nil
	default:
		return nil, fmt.Errorf("expected a name or list of names, got %T", value)
	}
}

func normalizeStringSlice(v []string) []string {
	seen := make(map[string]bool, len(v))
	names := make([]string, 0, len(v))
	for _, s := range v {
		if !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}
	return names
}

func normalizeRefresh(value any) (RefreshManifest, error) {
	switch v := value.(type) {
	case bool:
		if !v {
			return RefreshManifest{}, fmt.Errorf("only the literal sentinel true is allowed")
		}
		return RefreshManifest{SelfManaged: true}, nil
	case []any:
		files, err := normalizeNames(v)
		if err != nil {
			return RefreshManifest{}, err
		}
		return RefreshManifest{Files: files}, nil
	case []string:
		return RefreshManifest{Files: normalizeStringSlice(v)}, nil
	default:
		return RefreshManifest{}, fmt.Errorf("expected a file list or the literal true, got %T", value)
	}
}

// unionNames returns base ∪ extra, preserving base order first. Used to
// merge "all"-scoped entries with target-specific ones: target-specific
// entries add to, never replace, the all set.
func unionNames(base, extra []string) []string {
	if len(extra) == 0 {
		return append([]string{}, base...)
	}
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range base {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range extra {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// RequiredFor returns the hard-dependency names declared for a target or
// module. Absence of any of these at resolution time is a fatal error
// unless the name is also covered by required-optional rules.
func (b *BuildInfo) RequiredFor(name string) []string {
	return append([]string{}, b.dependencies[name]...)
}

// OptionalFor returns the optional-dependency names for a target, merging
// the "all" scope with target-specific entries.
func (b *BuildInfo) OptionalFor(name string) []string {
	return unionNames(b.optionalDependencies[ScopeAll], b.optionalDependencies[name])
}

// RequiredOptionalExternalFor returns the required-optional external names
// for a target, merging the "all" scope with target-specific entries.
// Unavailability of any of these bypasses the declaring target, never the
// whole configuration.
func (b *BuildInfo) RequiredOptionalExternalFor(name string) []string {
	return unionNames(b.requiredOptionalExternal[ScopeAll], b.requiredOptionalExternal[name])
}

// IncludesFor returns the parsed include-path rules for a target or module.
func (b *BuildInfo) IncludesFor(name string) []IncludePath {
	return append([]IncludePath{}, b.targetIncludes[name]...)
}

// DefinitionsFor returns the injected definitions for a target.
func (b *BuildInfo) DefinitionsFor(name string) []string {
	return append([]string{}, b.definitions[name]...)
}

// ForcedLocation returns the location override for a module, if any.
func (b *BuildInfo) ForcedLocation(module string) (string, bool) {
	path, ok := b.forcedLocations[module]
	return path, ok
}

// ForcedLocations returns all module location overrides, keys sorted.
func (b *BuildInfo) ForcedLocations() map[string]string {
	out := make(map[string]string, len(b.forcedLocations))
	for k, v := range b.forcedLocations {
		out[k] = v
	}
	return out
}

// RefreshFor returns the generated-file manifest for a module, if declared.
func (b *BuildInfo) RefreshFor(module string) (RefreshManifest, bool) {
	m, ok := b.refresh[module]
	return m, ok
}

// RefreshModules returns the names of all modules with refresh manifests,
// sorted for deterministic iteration.
func (b *BuildInfo) RefreshModules() []string {
	names := make([]string, 0, len(b.refresh))
	for name := range b.refresh {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OtherGenerated returns file paths produced outside the refresh mechanism.
func (b *BuildInfo) OtherGenerated() []string {
	return append([]string{}, b.otherGenerated...)
}

// scopeNames returns a category's keys sorted, excluding the "all" scope.
func scopeNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		if name != ScopeAll {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DependencyNames returns the keys of the dependencies table, sorted.
func (b *BuildInfo) DependencyNames() []string {
	return scopeNames(b.dependencies)
}

// OptionalScopes returns the keys of the optional_dependencies table,
// sorted, excluding the "all" scope.
func (b *BuildInfo) OptionalScopes() []string {
	return scopeNames(b.optionalDependencies)
}

// ExternalScopes returns the keys of the required_optional_external table,
// sorted, excluding the "all" scope.
func (b *BuildInfo) ExternalScopes() []string {
	return scopeNames(b.requiredOptionalExternal)
}

// IncludeNames returns the keys of the target_includes table, sorted.
func (b *BuildInfo) IncludeNames() []string {
	return scopeNames(b.targetIncludes)
}

// DefinitionNames returns the keys of the definitions table, sorted.
func (b *BuildInfo) DefinitionNames() []string {
	return scopeNames(b.definitions)
}

// RuleNames returns every target/module name referenced by any rule
// category (excluding the "all" scope), sorted. The resolver uses this to
// detect dangling rule references.
func (b *BuildInfo) RuleNames() []string {
	seen := map[string]bool{}
	collect := func(m map[string][]string) {
		for name := range m {
			if name != ScopeAll {
				seen[name] = true
			}
		}
	}
	collect(b.dependencies)
	collect(b.optionalDependencies)
	collect(b.requiredOptionalExternal)
	collect(b.definitions)
	for name := range b.targetIncludes {
		seen[name] = true
	}
	for name := range b.refresh {
		seen[name] = true
	}
	for name := range b.forcedLocations {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
