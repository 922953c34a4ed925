package dag

import (
	"fmt"
	"sort"
)

// Contains reports whether the graph has a node for the given field ID.
func (g *Graph) Contains(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Dependencies returns the sorted IDs of the fields the given field's
// formula reads directly.
func (g *Graph) Dependencies(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.deps), nil
}

// Dependents returns the sorted IDs of the computed fields that read the
// given field directly.
func (g *Graph) Dependents(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.dependents), nil
}

// Closure returns every computed field that must be re-evaluated after the
// given fields changed: the changed fields themselves when computed, plus
// all computed fields transitively reachable along dependent edges. The
// result is unordered; callers pass it to TopoOrder.
func (g *Graph) Closure(changed []string) ([]string, error) {
	visited := make(map[string]bool)
	var out []string

	var walk func(n *node)
	walk = func(n *node) {
		for _, dep := range n.dependents {
			if !visited[dep.id] {
				visited[dep.id] = true
				out = append(out, dep.id)
				walk(dep)
			}
		}
	}

	for _, id := range changed {
		n, ok := g.nodes[id]
		if !ok {
			return nil, fmt.Errorf("node not found: %s", id)
		}
		if n.computed && !visited[id] {
			visited[id] = true
			out = append(out, id)
		}
		walk(n)
	}

	sort.Strings(out)
	return out, nil
}

// TopoOrder arranges the given field IDs into an evaluation order consistent
// with the graph: no field appears before any of its dependencies that are
// also in the set. Kahn's algorithm with a sorted ready list keeps the order
// deterministic across calls, which makes cascades reproducible.
func (g *Graph) TopoOrder(ids []string) ([]string, error) {
	inSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := g.nodes[id]; !ok {
			return nil, fmt.Errorf("node not found: %s", id)
		}
		inSet[id] = true
	}

	// In-degree counted only over edges internal to the set.
	indegree := make(map[string]int, len(ids))
	for _, id := range ids {
		count := 0
		for depID := range g.nodes[id].deps {
			if inSet[depID] {
				count++
			}
		}
		indegree[id] = count
	}

	var ready []string
	for _, id := range ids {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	out := make([]string, 0, len(ids))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)

		released := false
		for depID := range g.nodes[id].dependents {
			if !inSet[depID] {
				continue
			}
			indegree[depID]--
			if indegree[depID] == 0 {
				ready = append(ready, depID)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(out) != len(ids) {
		// Build rejects cyclic graphs, so this indicates a bug.
		panic("dag: topological order incomplete on an acyclic graph")
	}
	return out, nil
}

// sortedIDs returns the keys of a node map in stable order.
func sortedIDs(nodes map[string]*node) []string {
	out := make([]string, 0, len(nodes))
	for id := range nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// sortedNodes returns the values of a node map ordered by ID, so traversals
// are deterministic.
func sortedNodes(nodes map[string]*node) []*node {
	out := make([]*node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
