// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"path"

	"github.com/tbxtools/tbxgraph/pkg/buildinfo"
)

type (
	// ResolvedInclude is one include path tagged with the module that
	// declared it, so anchor resolution stays possible after the rule
	// store is gone.
	ResolvedInclude struct {
		// Path is the parsed include rule.
		Path buildinfo.IncludePath
		// Module is the declaring module's name.
		Module string
		// ModulePath is the declaring module's location relative to the
		// distribution root, slash-separated.
		ModulePath string
	}

	// ResolvedTarget is one target's final dependency record. Immutable
	// once resolution returns.
	ResolvedTarget struct {
		// Name is the unique target name.
		Name string
		// Module is the owning module.
		Module string
		// Required are resolved hard dependencies, as target names.
		Required []string
		// Optional are resolved best-effort dependencies, as target names.
		Optional []string
		// Externals are the external capabilities this target requires and
		// the probe confirmed available.
		Externals []string
		// Includes is the effective include set: the target's own rules
		// (private included) plus every non-private rule from its
		// transitive required closure. Ordered and de-duplicated.
		Includes []ResolvedInclude
		// Definitions are symbols injected into the target's build
		// definitions unconditionally.
		Definitions []string
		// Bypassed marks a target dropped from the buildable graph because
		// a required external capability is unavailable, directly or
		// through a bypassed required dependency.
		Bypassed bool
		// BypassReason explains the bypass for diagnostics.
		BypassReason string
	}

	// ResolvedGraph is the immutable resolution result: every discovered
	// target (bypassed ones included, flagged), a topological build order
	// over the active targets, and the accumulated warnings.
	ResolvedGraph struct {
		targets  map[string]*ResolvedTarget
		order    []string
		warnings []Warning
	}
)

// Locate resolves the include to a concrete slash-separated path given the
// distribution root and the build output root. Module-relative paths anchor
// at the conventional parent of the declaring module's directory.
func (ri ResolvedInclude) Locate(distRoot, buildRoot string) string {
	switch ri.Path.Anchor {
	case buildinfo.AnchorBuild:
		return path.Join(buildRoot, ri.Path.Path)
	case buildinfo.AnchorBase:
		return path.Join(distRoot, ri.Path.Path)
	default:
		return path.Join(distRoot, path.Dir(ri.ModulePath), ri.Path.Path)
	}
}

// Target looks up a resolved target by name.
func (g *ResolvedGraph) Target(name string) (*ResolvedTarget, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// Targets returns every resolved target ordered by name, bypassed targets
// included.
func (g *ResolvedGraph) Targets() []*ResolvedTarget {
	out := make([]*ResolvedTarget, 0, len(g.targets))
	for _, name := range sortedKeys(g.targets) {
		out = append(out, g.targets[name])
	}
	return out
}

// Order returns the active targets in dependency order: every target
// appears after all of its required dependencies. Bypassed targets are
// excluded.
func (g *ResolvedGraph) Order() []string {
	return append([]string{}, g.order...)
}

// Warnings returns the recoverable issues collected during resolution.
func (g *ResolvedGraph) Warnings() []Warning {
	return append([]Warning{}, g.warnings...)
}

// Len returns the number of resolved targets, bypassed ones included.
func (g *ResolvedGraph) Len() int {
	return len(g.targets)
}
