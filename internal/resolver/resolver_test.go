// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tbxtools/tbxgraph/internal/dag"
	"github.com/tbxtools/tbxgraph/internal/discovery"
	"github.com/tbxtools/tbxgraph/internal/testutil/disttest"
	"github.com/tbxtools/tbxgraph/pkg/buildinfo"
)

func mustRules(t *testing.T, src string) *buildinfo.BuildInfo {
	t.Helper()
	rules, err := buildinfo.Parse([]byte(src), "build_info.cue")
	if err != nil {
		t.Fatalf("Parse(build info): %v", err)
	}
	return rules
}

func mustScan(t *testing.T, tree *disttest.Tree) *discovery.Inventory {
	t.Helper()
	inv, _, err := discovery.NewScanner(discovery.Options{}).Scan(tree.Root, nil)
	if err != nil {
		t.Fatalf("Scan(): %v", err)
	}
	return inv
}

// coreTree builds the minimal distribution most tests start from: the
// bootstrap module plus a scientific core module.
func coreTree(t *testing.T) *disttest.Tree {
	t.Helper()
	tree := disttest.New(t)
	tree.Module("libtbx", `{"targets": ["libtbx"]}`)
	tree.Module("scitbx", `{"targets": ["scitbx"]}`)
	return tree
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestResolve_DescriptorDependenciesAndImplicitBootstrap(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("cctbx", `{
		"modules_required_for_build": ["scitbx"],
		"targets": ["cctbx"],
	}`)

	graph, err := New(mustScan(t, tree), mustRules(t, ``), nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}

	cctbx, ok := graph.Target("cctbx")
	if !ok {
		t.Fatal("cctbx missing from graph")
	}
	if want := []string{"scitbx", "libtbx"}; !reflect.DeepEqual(cctbx.Required, want) {
		t.Errorf("cctbx required = %v, want %v", cctbx.Required, want)
	}

	scitbx, _ := graph.Target("scitbx")
	if want := []string{"libtbx"}; !reflect.DeepEqual(scitbx.Required, want) {
		t.Errorf("scitbx required = %v, want %v", scitbx.Required, want)
	}

	libtbx, _ := graph.Target("libtbx")
	if len(libtbx.Required) != 0 {
		t.Errorf("libtbx required = %v, want none", libtbx.Required)
	}

	order := graph.Order()
	if indexOf(order, "libtbx") > indexOf(order, "scitbx") ||
		indexOf(order, "scitbx") > indexOf(order, "cctbx") {
		t.Errorf("order %v does not respect dependencies", order)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("cctbx", `{
		"modules_required_for_build": ["scitbx"],
		"optional_modules": ["dials"],
		"targets": ["cctbx", "cctbx_sgtbx"],
	}`)
	tree.Module("dials", `{"targets": ["dials"]}`)
	rules := `
dependencies: {
	dials: ["cctbx"]
}
target_includes: {
	scitbx: ["include", "#build/scitbx"]
}
definitions: {
	cctbx: ["CCTBX_STATIC"]
}
`

	inv := mustScan(t, tree)
	first, err := New(inv, mustRules(t, rules), nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	for range 10 {
		again, err := New(inv, mustRules(t, rules), nil).Resolve()
		if err != nil {
			t.Fatalf("Resolve(): %v", err)
		}
		if !reflect.DeepEqual(first.Order(), again.Order()) {
			t.Fatalf("order differs between runs: %v vs %v", first.Order(), again.Order())
		}
		if !reflect.DeepEqual(first.Targets(), again.Targets()) {
			t.Fatal("resolved targets differ between runs")
		}
	}
}

func TestResolve_ModuleNameExpandsToOwnedTargets(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("cctbx", `{"targets": ["cctbx", "cctbx_sgtbx"]}`)
	tree.Module("dxtbx", `{"targets": ["dxtbx"]}`)

	// The rule names the module cctbx, not a specific target.
	rules := mustRules(t, `dependencies: dxtbx: ["cctbx"]`)

	graph, err := New(mustScan(t, tree), rules, nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	dxtbx, _ := graph.Target("dxtbx")
	// Target namespace wins: cctbx is also a target name, so the rule
	// resolves to that single target rather than the whole module.
	if want := []string{"libtbx", "cctbx"}; !reflect.DeepEqual(dxtbx.Required, want) {
		t.Errorf("dxtbx required = %v, want %v", dxtbx.Required, want)
	}
}

func TestResolve_ModuleNamespaceFallback(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	// Module name differs from both of its target names.
	tree.Module("annlib", `{"targets": ["ann", "ann_helpers"]}`)
	tree.Module("dxtbx", `{"targets": ["dxtbx"]}`)

	rules := mustRules(t, `dependencies: dxtbx: ["annlib"]`)

	graph, err := New(mustScan(t, tree), rules, nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	dxtbx, _ := graph.Target("dxtbx")
	if want := []string{"libtbx", "ann", "ann_helpers"}; !reflect.DeepEqual(dxtbx.Required, want) {
		t.Errorf("dxtbx required = %v, want %v", dxtbx.Required, want)
	}
}

func TestResolve_MissingRequiredModuleIsFatal(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("cctbx", `{"targets": ["cctbx"]}`)
	tree.Module("annlib", `{"targets": ["ann"]}`)
	tree.Module("rstbx", `{"targets": ["rstbx"]}`)

	// annlib_adaptbx is not discoverable.
	rules := mustRules(t, `dependencies: rstbx: ["cctbx", "annlib_adaptbx", "ann"]`)

	_, err := New(mustScan(t, tree), rules, nil).Resolve()
	var missing *MissingRequiredModuleError
	if !errors.As(err, &missing) {
		t.Fatalf("Resolve() error = %v, want MissingRequiredModuleError", err)
	}
	if missing.Name != "annlib_adaptbx" || missing.RequiredBy != "rstbx" {
		t.Errorf("error names %q required by %q, want annlib_adaptbx required by rstbx", missing.Name, missing.RequiredBy)
	}
}

func TestResolve_CompanionModuleRidesAlong(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("annlib", `{"targets": ["ann"]}`)
	tree.Module("annlib_adaptbx", `{"targets": ["annlib_adaptbx"]}`)
	tree.Module("rstbx", `{
		"modules_required_for_build": ["annlib"],
		"targets": ["rstbx"],
	}`)

	graph, err := New(mustScan(t, tree), mustRules(t, ``), nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	rstbx, _ := graph.Target("rstbx")
	if want := []string{"ann", "annlib_adaptbx", "libtbx"}; !reflect.DeepEqual(rstbx.Required, want) {
		t.Errorf("rstbx required = %v, want %v", rstbx.Required, want)
	}
}

func TestResolve_DuplicateTargetNameIsFatal(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("first", `{"targets": ["shared"]}`)
	tree.Module("second", `{"targets": ["shared"]}`)

	_, err := New(mustScan(t, tree), mustRules(t, ``), nil).Resolve()
	var dup *DuplicateTargetNameError
	if !errors.As(err, &dup) {
		t.Fatalf("Resolve() error = %v, want DuplicateTargetNameError", err)
	}
	if dup.Target != "shared" {
		t.Errorf("duplicate target = %q, want shared", dup.Target)
	}
	if dup.FirstModule != "first" || dup.SecondModule != "second" {
		t.Errorf("modules = %q, %q; want first, second", dup.FirstModule, dup.SecondModule)
	}
}

func TestResolve_CycleIsFatalWithTrace(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("alpha", `{"targets": ["alpha"]}`)
	tree.Module("beta", `{"targets": ["beta"]}`)

	rules := mustRules(t, `
dependencies: {
	alpha: "beta"
	beta:  "alpha"
}`)

	_, err := New(mustScan(t, tree), rules, nil).Resolve()
	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Resolve() error = %v, want CycleError", err)
	}
	names := map[string]bool{}
	for _, n := range cycle.Cycle {
		names[n] = true
	}
	if !names["alpha"] || !names["beta"] {
		t.Errorf("cycle %v should name both alpha and beta", cycle.Cycle)
	}
}

func TestResolve_OptionalCycleIsTolerated(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("alpha", `{"targets": ["alpha"]}`)
	tree.Module("beta", `{
		"optional_modules": ["alpha"],
		"targets": ["beta"],
	}`)

	// alpha requires beta; beta only optionally references alpha.
	rules := mustRules(t, `dependencies: alpha: "beta"`)

	graph, err := New(mustScan(t, tree), rules, nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	beta, _ := graph.Target("beta")
	if want := []string{"alpha"}; !reflect.DeepEqual(beta.Optional, want) {
		t.Errorf("beta optional = %v, want %v", beta.Optional, want)
	}
}

func TestResolve_DanglingRuleKeyWarns(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	rules := mustRules(t, `
dependencies: {
	ghost: ["scitbx"]
}
target_includes: {
	phantom: ["include"]
}`)

	graph, err := New(mustScan(t, tree), rules, nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}

	var dangling []string
	for _, w := range graph.Warnings() {
		if w.Code == WarnDanglingRuleReference {
			dangling = append(dangling, w.Name)
		}
	}
	if want := []string{"ghost", "phantom"}; !reflect.DeepEqual(dangling, want) {
		t.Errorf("dangling warnings = %v, want %v", dangling, want)
	}
}

func TestResolve_OptionalAbsentIsSilentlyOmitted(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	rules := mustRules(t, `optional_dependencies: scitbx: ["not_checked_out"]`)

	graph, err := New(mustScan(t, tree), rules, nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	scitbx, _ := graph.Target("scitbx")
	if len(scitbx.Optional) != 0 {
		t.Errorf("scitbx optional = %v, want none", scitbx.Optional)
	}
	if len(graph.Warnings()) != 0 {
		t.Errorf("warnings = %v, want none", graph.Warnings())
	}
}

func TestResolve_UnavailableExternalBypassesOnlyDeclaringTarget(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("gltbx", `{"targets": ["gltbx"]}`)
	tree.Module("viewer", `{
		"optional_modules": ["gltbx"],
		"targets": ["viewer"],
	}`)
	tree.Module("wxtbx", `{
		"modules_required_for_build": ["gltbx"],
		"targets": ["wxtbx"],
	}`)

	rules := mustRules(t, `required_optional_external: gltbx: ["GL", "GLU"]`)
	probe := StaticProbe{"GLU": true} // GL missing

	graph, err := New(mustScan(t, tree), rules, probe).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}

	gltbx, _ := graph.Target("gltbx")
	if !gltbx.Bypassed {
		t.Fatal("gltbx should be bypassed with GL unavailable")
	}

	// An optional dependent stays, just without gltbx.
	viewer, _ := graph.Target("viewer")
	if viewer.Bypassed {
		t.Error("viewer should survive the gltbx bypass")
	}
	if len(viewer.Optional) != 0 {
		t.Errorf("viewer optional = %v, want gltbx stripped", viewer.Optional)
	}

	// A required dependent is bypassed transitively.
	wxtbx, _ := graph.Target("wxtbx")
	if !wxtbx.Bypassed {
		t.Error("wxtbx requires gltbx and should be bypassed with it")
	}

	// Unrelated targets are untouched and the order excludes bypassed ones.
	order := graph.Order()
	if indexOf(order, "scitbx") == -1 {
		t.Error("scitbx should remain in the build order")
	}
	if indexOf(order, "gltbx") != -1 || indexOf(order, "wxtbx") != -1 {
		t.Errorf("order %v should exclude bypassed targets", order)
	}

	var codes []string
	for _, w := range graph.Warnings() {
		codes = append(codes, w.Code)
	}
	if want := []string{WarnRequiredOptionalUnavailable, WarnRequiredOptionalUnavailable}; !reflect.DeepEqual(codes, want) {
		t.Errorf("warning codes = %v, want %v", codes, want)
	}
}

func TestResolve_AvailableExternalsRecorded(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("gltbx", `{"targets": ["gltbx"]}`)
	rules := mustRules(t, `required_optional_external: gltbx: ["GL", "GLU"]`)

	graph, err := New(mustScan(t, tree), rules, AllAvailable).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	gltbx, _ := graph.Target("gltbx")
	if gltbx.Bypassed {
		t.Fatal("gltbx should not be bypassed when everything is available")
	}
	if want := []string{"GL", "GLU"}; !reflect.DeepEqual(gltbx.Externals, want) {
		t.Errorf("gltbx externals = %v, want %v", gltbx.Externals, want)
	}
}

func TestResolve_AllScopeMergesWithSpecificEntries(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("boost", `{"targets": ["boost"]}`)
	tree.Module("cctbx", `{"targets": ["cctbx"]}`)

	rules := mustRules(t, `
optional_dependencies: {
	all:   ["boost"]
	cctbx: ["scitbx"]
}
required_optional_external: {
	all:   ["threads"]
	cctbx: ["lapack"]
}`)

	graph, err := New(mustScan(t, tree), rules, AllAvailable).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}

	cctbx, _ := graph.Target("cctbx")
	if want := []string{"boost", "scitbx"}; !reflect.DeepEqual(cctbx.Optional, want) {
		t.Errorf("cctbx optional = %v, want all-scope plus specific %v", cctbx.Optional, want)
	}
	if want := []string{"threads", "lapack"}; !reflect.DeepEqual(cctbx.Externals, want) {
		t.Errorf("cctbx externals = %v, want %v", cctbx.Externals, want)
	}

	// A target with no specific entries still gets the all scope.
	scitbx, _ := graph.Target("scitbx")
	if want := []string{"boost"}; !reflect.DeepEqual(scitbx.Optional, want) {
		t.Errorf("scitbx optional = %v, want %v", scitbx.Optional, want)
	}
	if want := []string{"threads"}; !reflect.DeepEqual(scitbx.Externals, want) {
		t.Errorf("scitbx externals = %v, want %v", scitbx.Externals, want)
	}
}

func TestResolve_IncludeAnchorsAndPropagation(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("repo/annlib", `{"targets": ["ann"]}`)
	tree.Module("dxtbx", `{
		"modules_required_for_build": ["annlib"],
		"targets": ["dxtbx"],
	}`)
	// The scanner only finds modules one repository level deep when told;
	// rescan with the repo configured.
	inv, _, err := discovery.NewScanner(discovery.Options{Repositories: []string{"repo"}}).Scan(tree.Root, nil)
	if err != nil {
		t.Fatalf("Scan(): %v", err)
	}

	// Unprefixed paths are written module-name-first by convention, since
	// they anchor at the parent of the module directory.
	rules := mustRules(t, `
target_includes: {
	ann:   ["#base/annlib/include", "!annlib/internal"]
	dxtbx: ["dxtbx/include"]
}`)

	graph, err := New(inv, rules, nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}

	ann, _ := graph.Target("ann")
	var annPaths []string
	for _, inc := range ann.Includes {
		annPaths = append(annPaths, inc.Locate("/dist", "/build"))
	}
	// The #base path anchors at the distribution root regardless of where
	// annlib itself lives; the private path anchors at the module's parent.
	if want := []string{"/dist/annlib/include", "/dist/repo/annlib/internal"}; !reflect.DeepEqual(annPaths, want) {
		t.Errorf("ann include paths = %v, want %v", annPaths, want)
	}

	dxtbx, _ := graph.Target("dxtbx")
	var dxtbxPaths []string
	for _, inc := range dxtbx.Includes {
		dxtbxPaths = append(dxtbxPaths, inc.Locate("/dist", "/build"))
	}
	// Own include first, then the non-private include inherited from ann.
	// The private "!internal" path must never propagate.
	if want := []string{"/dist/dxtbx/include", "/dist/annlib/include"}; !reflect.DeepEqual(dxtbxPaths, want) {
		t.Errorf("dxtbx include paths = %v, want %v", dxtbxPaths, want)
	}
}

func TestResolve_DefinitionsAttachWithoutPropagation(t *testing.T) {
	t.Parallel()

	tree := coreTree(t)
	tree.Module("cctbx", `{
		"modules_required_for_build": ["scitbx"],
		"targets": ["cctbx"],
	}`)

	rules := mustRules(t, `definitions: scitbx: ["SCITBX_STATIC"]`)

	graph, err := New(mustScan(t, tree), rules, nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	scitbx, _ := graph.Target("scitbx")
	if want := []string{"SCITBX_STATIC"}; !reflect.DeepEqual(scitbx.Definitions, want) {
		t.Errorf("scitbx definitions = %v, want %v", scitbx.Definitions, want)
	}
	cctbx, _ := graph.Target("cctbx")
	if len(cctbx.Definitions) != 0 {
		t.Errorf("cctbx definitions = %v, want none (definitions never propagate)", cctbx.Definitions)
	}
}
