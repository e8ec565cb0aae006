// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tbxtools/tbxgraph/internal/discovery"
	"github.com/tbxtools/tbxgraph/internal/resolver"
	"github.com/tbxtools/tbxgraph/internal/testutil/disttest"
	"github.com/tbxtools/tbxgraph/pkg/buildinfo"
)

func resolvedGraph(t *testing.T) *resolver.ResolvedGraph {
	t.Helper()

	tree := disttest.New(t)
	tree.Module("libtbx", `{"targets": ["libtbx"]}`)
	tree.Module("scitbx", `{"targets": ["scitbx"]}`)
	tree.Module("cctbx", `{
		"modules_required_for_build": ["scitbx"],
		"targets": ["cctbx"],
	}`)

	inv, _, err := discovery.NewScanner(discovery.Options{}).Scan(tree.Root, nil)
	if err != nil {
		t.Fatalf("Scan(): %v", err)
	}
	rules, err := buildinfo.Parse([]byte(`definitions: cctbx: ["CCTBX_STATIC"]`), "build_info.cue")
	if err != nil {
		t.Fatalf("Parse(build info): %v", err)
	}
	graph, err := resolver.New(inv, rules, nil).Resolve()
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	return graph
}

func TestSnapshot_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	snap := FromGraph(resolvedGraph(t))
	path := filepath.Join(t.TempDir(), "locks", "tbxgraph.lock.cue")

	if err := snap.Save(path); err != nil {
		t.Fatalf("Save(): %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if !snap.Equal(loaded) {
		t.Errorf("loaded snapshot differs:\n got %+v\nwant %+v", loaded, snap)
	}
	if loaded.GeneratedAt != snap.GeneratedAt {
		t.Errorf("generated_at = %q, want %q", loaded.GeneratedAt, snap.GeneratedAt)
	}

	cctbx, ok := loaded.Targets["cctbx"]
	if !ok {
		t.Fatal("cctbx missing from loaded snapshot")
	}
	if want := []string{"scitbx", "libtbx"}; !reflect.DeepEqual(cctbx.Required, want) {
		t.Errorf("cctbx required = %v, want %v", cctbx.Required, want)
	}
	if want := []string{"CCTBX_STATIC"}; !reflect.DeepEqual(cctbx.Definitions, want) {
		t.Errorf("cctbx definitions = %v, want %v", cctbx.Definitions, want)
	}
}

func TestLoad_MissingFileYieldsEmptySnapshot(t *testing.T) {
	t.Parallel()

	snap, err := Load(filepath.Join(t.TempDir(), "absent.lock.cue"))
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if len(snap.Targets) != 0 || len(snap.Order) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestSnapshot_EqualIgnoresTimestamp(t *testing.T) {
	t.Parallel()

	graph := resolvedGraph(t)
	a := FromGraph(graph)
	b := FromGraph(graph)
	b.GeneratedAt = "2000-01-01T00:00:00Z"

	if !a.Equal(b) {
		t.Error("snapshots of the same graph should be equal regardless of timestamp")
	}

	b.Targets["cctbx"] = Target{Module: "cctbx"}
	if a.Equal(b) {
		t.Error("snapshots with different target records should not be equal")
	}
}

func TestSnapshot_SerializationIsStable(t *testing.T) {
	t.Parallel()

	graph := resolvedGraph(t)
	a := FromGraph(graph)
	b := FromGraph(graph)
	b.GeneratedAt = a.GeneratedAt

	if a.toCUE() != b.toCUE() {
		t.Error("identical snapshots should serialize identically")
	}
	if !strings.Contains(a.toCUE(), "DO NOT EDIT") {
		t.Error("snapshot header missing")
	}
}
