// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/tbxtools/tbxgraph/internal/dag"
	"github.com/tbxtools/tbxgraph/internal/discovery"
	"github.com/tbxtools/tbxgraph/pkg/buildinfo"
)

// CompanionSuffix marks adapter modules that ride along with their base
// module: a dependency on module X implicitly pulls in X_adaptbx when one
// is discovered.
const CompanionSuffix = "_adaptbx"

// Resolver builds the dependency graph from a scanned inventory and a
// validated rule store. Resolution is a single synchronous pass over
// immutable inputs; a Resolver can be reused but holds no state between
// calls.
type Resolver struct {
	inventory *discovery.Inventory
	rules     *buildinfo.BuildInfo
	probe     AvailabilityProbe
}

// resolution is the mutable working state of one Resolve call.
type resolution struct {
	inventory *discovery.Inventory
	rules     *buildinfo.BuildInfo
	probe     AvailabilityProbe

	// owner maps target name -> owning module name.
	owner map[string]string
	// targets maps target name -> record under construction.
	targets map[string]*ResolvedTarget
	// ownIncludes holds each target's directly declared include rules.
	ownIncludes map[string][]ResolvedInclude
	warnings    []Warning
}

// New creates a Resolver. A nil probe treats every external capability as
// available.
func New(inventory *discovery.Inventory, rules *buildinfo.BuildInfo, probe AvailabilityProbe) *Resolver {
	if probe == nil {
		probe = AllAvailable
	}
	return &Resolver{inventory: inventory, rules: rules, probe: probe}
}

// Resolve runs the full pipeline: index targets, seed dependency edges from
// module descriptors and the rule store, apply external-capability bypass,
// order the graph, and attach include paths and definitions. It returns
// either a complete graph or the first fatal error; partial graphs are
// never exposed.
func (r *Resolver) Resolve() (*ResolvedGraph, error) {
	st := &resolution{
		inventory:   r.inventory,
		rules:       r.rules,
		probe:       r.probe,
		owner:       make(map[string]string),
		targets:     make(map[string]*ResolvedTarget),
		ownIncludes: make(map[string][]ResolvedInclude),
	}

	if err := st.indexTargets(); err != nil {
		return nil, err
	}
	if err := st.seedModuleDependencies(); err != nil {
		return nil, err
	}
	if err := st.applyDependencyRules(); err != nil {
		return nil, err
	}
	st.applyOptionalRules()
	st.applyExternalRequirements()
	st.propagateBypass()

	order, err := st.buildOrder()
	if err != nil {
		return nil, err
	}

	st.computeIncludes()
	st.applyDefinitions()

	return &ResolvedGraph{targets: st.targets, order: order, warnings: st.warnings}, nil
}

// indexTargets assigns every declared target to its owning module. Target
// names are unique across the whole distribution.
func (st *resolution) indexTargets() error {
	for _, m := range st.inventory.Modules() {
		for _, name := range m.Targets {
			if prev, taken := st.owner[name]; taken {
				return &DuplicateTargetNameError{Target: name, FirstModule: prev, SecondModule: m.Name}
			}
			st.owner[name] = m.Name
			st.targets[name] = &ResolvedTarget{Name: name, Module: m.Name}
		}
	}
	return nil
}

// resolveName maps a dependency name to concrete targets: the target
// namespace is checked first, then the module namespace (a module expands
// to every target it owns). A discovered module with no targets resolves
// to an empty set, which is still a successful resolution.
func (st *resolution) resolveName(name string) ([]string, bool) {
	if _, ok := st.owner[name]; ok {
		return []string{name}, true
	}
	if m, ok := st.inventory.Module(name); ok {
		return append([]string{}, m.Targets...), true
	}
	return nil, false
}

// withCompanions expands a dependency list with adapter co-modules: a
// dependency on X pulls in X_adaptbx when that module was discovered.
func (st *resolution) withCompanions(deps []string) []string {
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		out = appendUnique(out, dep)
		companion := dep + CompanionSuffix
		if st.inventory.HasModule(companion) {
			out = appendUnique(out, companion)
		}
	}
	return out
}

// seedModuleDependencies turns descriptor-level module requirements into
// target edges. Every module except the bootstrap module itself implicitly
// requires the bootstrap module.
func (st *resolution) seedModuleDependencies() error {
	bootstrapPresent := st.inventory.HasModule(discovery.BootstrapModule)

	for _, m := range st.inventory.Modules() {
		if len(m.Targets) == 0 {
			continue
		}

		required := append([]string{}, m.Required...)
		if bootstrapPresent && m.Name != discovery.BootstrapModule {
			required = appendUnique(required, discovery.BootstrapModule)
		}
		for _, dep := range st.withCompanions(required) {
			if dep == m.Name {
				continue
			}
			depTargets, ok := st.resolveName(dep)
			if !ok {
				return &MissingRequiredModuleError{Name: dep, RequiredBy: m.Name}
			}
			st.addEdges(m.Targets, depTargets, false)
		}

		for _, dep := range st.withCompanions(m.Optional) {
			if dep == m.Name {
				continue
			}
			depTargets, ok := st.resolveName(dep)
			if !ok {
				slog.Debug("optional module absent, skipped", "module", m.Name, "optional", dep)
				continue
			}
			st.addEdges(m.Targets, depTargets, true)
		}
	}
	return nil
}

// applyDependencyRules adds the rule store's hard dependencies. A rule
// keyed by an unknown name is dangling and skipped with a warning; an
// unresolvable dependency value is fatal.
func (st *resolution) applyDependencyRules() error {
	for _, key := range st.rules.DependencyNames() {
		keyTargets, ok := st.resolveName(key)
		if !ok {
			st.warnDangling("dependencies", key)
			continue
		}
		for _, dep := range st.withCompanions(st.rules.RequiredFor(key)) {
			if dep == key {
				continue
			}
			depTargets, ok := st.resolveName(dep)
			if !ok {
				return &MissingRequiredModuleError{Name: dep, RequiredBy: key}
			}
			st.addEdges(keyTargets, depTargets, false)
		}
	}
	return nil
}

// applyOptionalRules adds the rule store's best-effort dependencies. The
// "all" scope applies to every target; unresolvable values are omitted
// since optional dependencies are inherently best-effort.
func (st *resolution) applyOptionalRules() {
	for _, name := range sortedKeys(st.targets) {
		st.addOptionalNames([]string{name}, st.rules.OptionalFor(name))
	}
	for _, key := range st.rules.OptionalScopes() {
		if _, isTarget := st.owner[key]; isTarget {
			continue // already merged via OptionalFor above
		}
		keyTargets, ok := st.resolveName(key)
		if !ok {
			st.warnDangling("optional_dependencies", key)
			continue
		}
		st.addOptionalNames(keyTargets, st.rules.OptionalFor(key))
	}
}

func (st *resolution) addOptionalNames(onto []string, deps []string) {
	for _, dep := range st.withCompanions(deps) {
		depTargets, ok := st.resolveName(dep)
		if !ok {
			slog.Debug("optional dependency absent, skipped", "optional", dep)
			continue
		}
		st.addEdges(onto, depTargets, true)
	}
}

// addEdges records dependency edges from every target in from to every
// target in to, skipping self-edges and duplicates.
func (st *resolution) addEdges(from, to []string, optional bool) {
	for _, f := range from {
		t := st.targets[f]
		for _, d := range to {
			if d == f {
				continue
			}
			if optional {
				t.Optional = appendUnique(t.Optional, d)
			} else {
				t.Required = appendUnique(t.Required, d)
			}
		}
	}
}

// applyExternalRequirements checks each target's required external
// capabilities against the probe. An unavailable capability bypasses the
// declaring target only; module-scoped rules apply to every target the
// module owns.
func (st *resolution) applyExternalRequirements() {
	pending := make(map[string][]string, len(st.targets))
	for _, name := range sortedKeys(st.targets) {
		pending[name] = st.rules.RequiredOptionalExternalFor(name)
	}
	for _, key := range st.rules.ExternalScopes() {
		if _, isTarget := st.owner[key]; isTarget {
			continue
		}
		keyTargets, ok := st.resolveName(key)
		if !ok {
			st.warnDangling("required_optional_external", key)
			continue
		}
		merged := st.rules.RequiredOptionalExternalFor(key)
		for _, name := range keyTargets {
			pending[name] = appendUnique(pending[name], merged...)
		}
	}

	for _, name := range sortedKeys(st.targets) {
		t := st.targets[name]
		for _, ext := range pending[name] {
			if !st.probe.Available(ext) {
				t.Bypassed = true
				t.BypassReason = fmt.Sprintf("external capability %q unavailable", ext)
				t.Externals = nil
				st.warn(WarnRequiredOptionalUnavailable, name,
					fmt.Sprintf("target %q bypassed: external capability %q unavailable", name, ext))
				break
			}
			t.Externals = appendUnique(t.Externals, ext)
		}
	}
}

// propagateBypass extends bypass to targets whose required dependencies
// were bypassed, then strips optional references to bypassed targets from
// the survivors.
func (st *resolution) propagateBypass() {
	names := sortedKeys(st.targets)

	for changed := true; changed; {
		changed = false
		for _, name := range names {
			t := st.targets[name]
			if t.Bypassed {
				continue
			}
			for _, dep := range t.Required {
				if st.targets[dep].Bypassed {
					t.Bypassed = true
					t.BypassReason = fmt.Sprintf("required dependency %q is bypassed", dep)
					st.warn(WarnRequiredOptionalUnavailable, name,
						fmt.Sprintf("target %q bypassed: required dependency %q is bypassed", name, dep))
					changed = true
					break
				}
			}
		}
	}

	for _, name := range names {
		t := st.targets[name]
		if t.Bypassed {
			continue
		}
		var kept []string
		for _, dep := range t.Optional {
			if !st.targets[dep].Bypassed {
				kept = append(kept, dep)
			}
		}
		t.Optional = kept
	}
}

// buildOrder topologically sorts the active targets over required edges.
// Optional edges never participate, so an optional back-reference cannot
// fail an otherwise valid configuration.
func (st *resolution) buildOrder() ([]string, error) {
	g := dag.New()
	for _, name := range sortedKeys(st.targets) {
		t := st.targets[name]
		if t.Bypassed {
			continue
		}
		g.AddNode(name)
		for _, dep := range t.Required {
			g.AddEdge(dep, name)
		}
	}
	return g.TopologicalSort()
}

// computeIncludes resolves each target's own include rules and unions in
// every non-private rule from its transitive required closure. Private
// paths never propagate beyond the declaring target.
func (st *resolution) computeIncludes() {
	for _, key := range st.rules.IncludeNames() {
		paths := st.rules.IncludesFor(key)

		if owner, isTarget := st.owner[key]; isTarget {
			st.appendOwnIncludes(key, owner, paths)
			continue
		}
		if m, ok := st.inventory.Module(key); ok {
			for _, name := range m.Targets {
				st.appendOwnIncludes(name, m.Name, paths)
			}
			continue
		}
		st.warnDangling("target_includes", key)
	}

	for _, name := range sortedKeys(st.targets) {
		t := st.targets[name]
		includes := append([]ResolvedInclude{}, st.ownIncludes[name]...)
		if !t.Bypassed {
			for _, dep := range st.requiredClosure(name) {
				for _, inc := range st.ownIncludes[dep] {
					if !inc.Path.Private {
						includes = append(includes, inc)
					}
				}
			}
		}
		t.Includes = dedupeIncludes(includes)
	}
}

func (st *resolution) appendOwnIncludes(target, module string, paths []buildinfo.IncludePath) {
	modulePath := ""
	if m, ok := st.inventory.Module(module); ok {
		modulePath = m.Path
	}
	for _, p := range paths {
		st.ownIncludes[target] = append(st.ownIncludes[target], ResolvedInclude{
			Path:       p,
			Module:     module,
			ModulePath: modulePath,
		})
	}
}

// requiredClosure returns the transitive required dependencies of a target
// in deterministic depth-first edge order, the target itself excluded.
func (st *resolution) requiredClosure(name string) []string {
	var out []string
	seen := map[string]bool{name: true}

	var visit func(string)
	visit = func(node string) {
		for _, dep := range st.targets[node].Required {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			visit(dep)
		}
	}
	visit(name)
	return out
}

// applyDefinitions unions injected symbols into each target's definition
// set. Definitions attach to the named target (or every target of a named
// module) and never propagate.
func (st *resolution) applyDefinitions() {
	for _, key := range st.rules.DefinitionNames() {
		keyTargets, ok := st.resolveName(key)
		if !ok {
			st.warnDangling("definitions", key)
			continue
		}
		defs := st.rules.DefinitionsFor(key)
		for _, name := range keyTargets {
			t := st.targets[name]
			t.Definitions = appendUnique(t.Definitions, defs...)
		}
	}
}

func (st *resolution) warn(code, name, message string) {
	st.warnings = append(st.warnings, Warning{Code: code, Name: name, Message: message})
}

func (st *resolution) warnDangling(section, key string) {
	slog.Warn("dangling rule reference", "section", section, "key", key)
	st.warn(WarnDanglingRuleReference, key,
		fmt.Sprintf("%s rule for %q references neither a known target nor a known module", section, key))
}

func appendUnique(list []string, names ...string) []string {
	for _, name := range names {
		found := false
		for _, have := range list {
			if have == name {
				found = true
				break
			}
		}
		if !found {
			list = append(list, name)
		}
	}
	return list
}

func dedupeIncludes(includes []ResolvedInclude) []ResolvedInclude {
	seen := make(map[string]bool, len(includes))
	out := make([]ResolvedInclude, 0, len(includes))
	for _, inc := range includes {
		key := inc.Module + "\x00" + inc.Path.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, inc)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
