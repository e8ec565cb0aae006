// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// libtbx -> cctbx -> rstbx (libtbx resolves first)
	g.AddEdge("libtbx", "cctbx")
	g.AddEdge("cctbx", "rstbx")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"libtbx", "cctbx", "rstbx"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	if pos["A"] > pos["B"] || pos["A"] > pos["C"] || pos["B"] > pos["D"] || pos["C"] > pos["D"] {
		t.Errorf("order violates dependencies: %v", order)
	}
}

func TestTopologicalSort_Deterministic(t *testing.T) {
	t.Parallel()

	build := func() *Graph {
		g := New()
		g.AddNode("scitbx")
		g.AddNode("cctbx")
		g.AddNode("ann")
		g.AddEdge("scitbx", "cctbx")
		return g
	}

	first, err := build().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 10 {
		again, err := build().TopologicalSort()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(first, again) {
			t.Fatalf("order not deterministic: %v vs %v", first, again)
		}
	}
}

func TestFindCycle_Acyclic(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	if err := g.FindCycle(); err != nil {
		t.Errorf("expected no cycle, got %v", err)
	}
}

func TestFindCycle_TwoNodeCycle(t *testing.T) {
	t.Parallel()
	g := New()
	// A requires B requires A: both members must be named in the trace.
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	err := g.FindCycle()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !slices.Contains(err.Cycle, "A") || !slices.Contains(err.Cycle, "B") {
		t.Errorf("cycle trace should name both members, got %v", err.Cycle)
	}
	if err.Cycle[0] != err.Cycle[len(err.Cycle)-1] {
		t.Errorf("cycle trace should close on its starting node, got %v", err.Cycle)
	}
}

func TestFindCycle_CycleBehindChain(t *testing.T) {
	t.Parallel()
	g := New()
	// X -> A -> B -> C -> A: the trace must cover only the cycle, not X.
	g.AddEdge("X", "A")
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	err := g.FindCycle()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if slices.Contains(err.Cycle, "X") {
		t.Errorf("cycle trace should not include the lead-in node, got %v", err.Cycle)
	}
	want := []string{"A", "B", "C", "A"}
	if !slices.Equal(err.Cycle, want) {
		t.Errorf("expected cycle %v, got %v", want, err.Cycle)
	}
}

func TestTopologicalSort_CycleCarriesTrace(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Cycle) < 3 {
		t.Errorf("expected full cycle path, got %v", cycleErr.Cycle)
	}
}

func TestAddNode_Idempotent(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("A")
	g.AddNode("A")
	if got := g.Nodes(); len(got) != 1 {
		t.Errorf("expected 1 node, got %v", got)
	}
}
