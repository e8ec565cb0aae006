// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed graph operations for topological ordering
// and cycle detection. It is used by the dependency resolver to order
// targets by their required-dependency relation and to reject cyclic
// configurations with a full cycle trace.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing
	// topological ordering. Cycle holds the full path, with the starting
	// node repeated at the end (e.g. [A B A]).
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph over string-keyed nodes. An edge from A to B
	// means A must be resolved before B (B depends on A).
	Graph struct {
		// adjacency maps each node to its outgoing neighbors.
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must be resolved
// before "to". Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// HasNode reports whether the node exists in the graph.
func (g *Graph) HasNode(name string) bool {
	return g.nodeSet[name]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// FindCycle searches the graph depth-first for a cycle, using a
// recursion-stack marker to distinguish back edges from cross edges.
// It returns a CycleError carrying the full cycle path, or nil when the
// graph is acyclic. Traversal order follows node insertion order so the
// reported cycle is stable run-to-run.
func (g *Graph) FindCycle() *CycleError {
	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(node string) *CycleError
	visit = func(node string) *CycleError {
		state[node] = inStack
		stack = append(stack, node)

		for _, next := range g.adjacency[node] {
			switch state[next] {
			case inStack:
				// Back edge: the cycle is the stack suffix from next onward.
				start := 0
				for i, n := range stack {
					if n == next {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, stack[start:]...), next)
				return &CycleError{Cycle: cycle}
			case unvisited:
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}

	for _, node := range g.nodes {
		if state[node] == unvisited {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalSort returns a valid resolution order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle; the error carries the
// full cycle path from FindCycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		if cycleErr := g.FindCycle(); cycleErr != nil {
			return nil, cycleErr
		}
		// Unreachable: Kahn left nodes unsorted, so a cycle must exist.
		var leftover []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				leftover = append(leftover, node)
			}
		}
		return nil, &CycleError{Cycle: leftover}
	}

	return result, nil
}
