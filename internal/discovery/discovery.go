// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ModuleCollisionError is returned when two directories claim the same
// module name and neither (or both) can be classified as the real module.
type ModuleCollisionError struct {
	Name       string
	FirstPath  string
	SecondPath string
}

// Error implements the error interface.
func (e *ModuleCollisionError) Error() string {
	return fmt.Sprintf(
		"module name collision: '%s' found in both:\n"+
			"  - %s\n"+
			"  - %s\n\n"+
			"Remove the stale checkout, or point the real one at a "+
			"forced_locations entry:\n"+
			"  forced_locations: %s: \"<path>\"",
		e.Name, e.FirstPath, e.SecondPath, e.Name)
}

type (
	// Options configures a Scanner.
	Options struct {
		// Repositories are nested directories searched for modules in
		// addition to the distribution root (e.g. "cctbx_project").
		Repositories []string
		// IgnoreMissing demotes the named modules from required to optional
		// in every descriptor, so their absence never fails resolution.
		IgnoreMissing []string
	}

	// Scanner discovers modules in a distribution root. A Scanner is pure:
	// it reads the filesystem and never mutates it.
	Scanner struct {
		repositories  []string
		ignoreMissing map[string]bool
	}

	// Inventory is the normalized scan result: module name -> module.
	// Immutable for the duration of one resolution run.
	Inventory struct {
		// Root is the absolute distribution root.
		Root string

		modules map[string]*Module
	}

	// candidate is a directory that may become a module.
	candidate struct {
		relPath string
		absPath string
	}
)

// NewScanner creates a Scanner with the given options.
func NewScanner(opts Options) *Scanner {
	ignore := make(map[string]bool, len(opts.IgnoreMissing))
	for _, name := range opts.IgnoreMissing {
		ignore[name] = true
	}
	return &Scanner{
		repositories:  append([]string{}, opts.Repositories...),
		ignoreMissing: ignore,
	}
}

// Scan walks the distribution root and produces the module inventory.
// Forced locations always win over positional discovery; a forced location
// that does not exist on disk excludes the module with a warning rather
// than failing the scan. Results are ordered by module name so downstream
// output is reproducible run-to-run.
func (s *Scanner) Scan(root string, forced map[string]string) (*Inventory, []Diagnostic, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve distribution root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("distribution root %s is not a directory", root)
	}

	candidates, err := s.collectCandidates(absRoot, forced)
	if err != nil {
		return nil, nil, err
	}

	var diags []Diagnostic

	// Forced locations override whatever discovery found.
	for _, name := range sortedKeys(forced) {
		override := forced[name]
		absPath := filepath.Join(absRoot, filepath.FromSlash(override))
		if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeForcedLocationMissing,
				Message:  fmt.Sprintf("forced location for module %q does not exist; its targets are unavailable", name),
				Path:     absPath,
			})
			delete(candidates, name)
			continue
		}
		if prev, ok := candidates[name]; ok && prev.relPath != filepath.ToSlash(override) {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeForcedLocationShadows,
				Message:  fmt.Sprintf("forced location for module %q shadows discovered directory %s", name, prev.relPath),
				Path:     prev.absPath,
			})
		}
		candidates[name] = candidate{relPath: filepath.ToSlash(override), absPath: absPath}
	}

	inv := &Inventory{Root: absRoot, modules: make(map[string]*Module, len(candidates))}

	for _, name := range sortedKeys(candidates) {
		cand := candidates[name]
		module := &Module{
			Name:       name,
			Path:       cand.relPath,
			AbsPath:    cand.absPath,
			HasRefresh: fileExists(filepath.Join(cand.absPath, RefreshScriptName)),
			Forced:     forced[name] != "",
		}

		descPath := filepath.Join(cand.absPath, DescriptorName)
		if fileExists(descPath) {
			desc, descDiags, err := parseDescriptor(descPath)
			diags = append(diags, descDiags...)
			if err == nil {
				err = desc.apply(module)
			}
			if err != nil {
				diags = append(diags, Diagnostic{
					Severity: SeverityError,
					Code:     CodeDescriptorParseSkipped,
					Message:  fmt.Sprintf("descriptor for module %q could not be parsed; module kept without targets", name),
					Path:     descPath,
					Cause:    err,
				})
				module.Targets, module.Required, module.Optional = nil, nil, nil
			}
		}

		s.demoteIgnored(module)
		inv.modules[name] = module
	}

	if _, ok := inv.modules[BootstrapModule]; !ok {
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeBootstrapModuleMissing,
			Message:  fmt.Sprintf("could not find %s in distribution; this is allowed but probably not intentional", BootstrapModule),
			Path:     absRoot,
		})
	}

	return inv, diags, nil
}

// collectCandidates lists direct subdirectories of the root plus the
// subdirectories of each nested repository. Name collisions are fatal only
// when no forced location decides the name.
func (s *Scanner) collectCandidates(absRoot string, forced map[string]string) (map[string]candidate, error) {
	repoSet := make(map[string]bool, len(s.repositories))
	for _, repo := range s.repositories {
		repoSet[repo] = true
	}

	candidates := make(map[string]candidate)

	add := func(name, relPath, absPath string) error {
		next := candidate{relPath: relPath, absPath: absPath}
		prev, taken := candidates[name]
		if !taken {
			candidates[name] = next
			return nil
		}
		// Same name in two repositories (e.g. a stale sibling checkout):
		// keep whichever actually looks like a module.
		prevLooks := looksLikeModule(prev.absPath)
		nextLooks := looksLikeModule(next.absPath)
		switch {
		case prevLooks && !nextLooks:
			// keep prev
		case nextLooks && !prevLooks:
			candidates[name] = next
		default:
			if override, ok := forced[name]; ok {
				// A forced location decides this name in Scan. Keep the
				// candidate it shadows so the shadow warning names it.
				if prev.relPath == filepath.ToSlash(override) {
					candidates[name] = next
				}
				return nil
			}
			return &ModuleCollisionError{Name: name, FirstPath: prev.relPath, SecondPath: next.relPath}
		}
		return nil
	}

	listSubdirs := func(dir string) ([]string, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		var names []string
		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() || name[0] == '.' || name == "__pycache__" {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}

	topLevel, err := listSubdirs(absRoot)
	if err != nil {
		return nil, err
	}
	for _, name := range topLevel {
		if repoSet[name] {
			continue
		}
		if err := add(name, name, filepath.Join(absRoot, name)); err != nil {
			return nil, err
		}
	}

	for _, repo := range s.repositories {
		repoDir := filepath.Join(absRoot, repo)
		if info, err := os.Stat(repoDir); err != nil || !info.IsDir() {
			continue
		}
		nested, err := listSubdirs(repoDir)
		if err != nil {
			return nil, err
		}
		for _, name := range nested {
			relPath := repo + "/" + name
			if err := add(name, relPath, filepath.Join(repoDir, name)); err != nil {
				return nil, err
			}
		}
	}

	return candidates, nil
}

// demoteIgnored moves ignore_missing names from required to optional so a
// deliberately absent module never fails resolution.
func (s *Scanner) demoteIgnored(m *Module) {
	if len(s.ignoreMissing) == 0 || len(m.Required) == 0 {
		return
	}
	var kept []string
	for _, name := range m.Required {
		if s.ignoreMissing[name] {
			m.Optional = dedupe(append(m.Optional, name))
		} else {
			kept = append(kept, name)
		}
	}
	m.Required = kept
}

// Module looks up a module by name.
func (inv *Inventory) Module(name string) (*Module, bool) {
	m, ok := inv.modules[name]
	return m, ok
}

// HasModule reports whether the named module was discovered.
func (inv *Inventory) HasModule(name string) bool {
	_, ok := inv.modules[name]
	return ok
}

// Modules returns all discovered modules ordered by name.
func (inv *Inventory) Modules() []*Module {
	names := sortedKeys(inv.modules)
	out := make([]*Module, 0, len(names))
	for _, name := range names {
		out = append(out, inv.modules[name])
	}
	return out
}

// Len returns the number of discovered modules.
func (inv *Inventory) Len() int {
	return len(inv.modules)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
