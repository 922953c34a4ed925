package dag

import (
	"fmt"
	"strings"
)

// Graph is the dependency graph over all fields of one project. Edges run
// from a dependency to the computed fields that read it.
type Graph struct {
	nodes map[string]*node
}

// node is a single field vertex. It is unexported to force interaction via
// the string-ID API rather than direct struct manipulation.
type node struct {
	id string
	// computed marks fields whose value is produced by a formula.
	computed bool
	// deps holds the fields this node's formula reads (predecessors).
	deps map[string]*node
	// dependents holds the computed fields that read this node (successors).
	dependents map[string]*node
}

// CycleError reports a dependency cycle found at graph construction time.
// Members lists the field IDs on the detected cycle in traversal order.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Members, " -> "))
}
