package dag

import (
	"context"
	"fmt"

	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/ctxlog"
)

// Build constructs the validated dependency graph for a schema model. Every
// field becomes a node; every formula contributes one edge per referenced
// field. A cycle is a hard construction failure: the project cannot open.
func Build(ctx context.Context, model *config.Model) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	graph := &Graph{nodes: make(map[string]*node, len(model.Fields))}

	// First pass: one node per schema field.
	for id, def := range model.Fields {
		graph.nodes[id] = &node{
			id:         id,
			computed:   def.Computed(),
			deps:       make(map[string]*node),
			dependents: make(map[string]*node),
		}
	}
	logger.Debug("Build: node creation complete.", "node_count", len(graph.nodes))

	// Second pass: link each formula target to its referenced fields.
	for _, formula := range model.Formulas() {
		for _, dep := range formula.Dependencies {
			if err := graph.addEdge(dep, formula.FieldID); err != nil {
				return nil, fmt.Errorf("error linking formula of %q: %w", formula.FieldID, err)
			}
		}
	}
	logger.Debug("Build: edge linking complete.")

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	return graph, nil
}

// addEdge records that the `toID` field's formula reads `fromID`. A formula
// referencing its own target is the smallest possible cycle and is rejected
// immediately with the same error shape as the general case.
func (g *Graph) addEdge(fromID, toID string) error {
	if fromID == toID {
		return &CycleError{Members: []string{fromID, toID}}
	}

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return &config.UnknownFieldError{FieldID: fromID, Referrer: fmt.Sprintf("formula of field %q", toID)}
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return &config.UnknownFieldError{FieldID: toID, Referrer: "schema formula set"}
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode
	return nil
}

// detectCycles runs a depth-first search with a recursion-stack check.
// Nodes move from unvisited through the temporary (in-stack) set into the
// permanent set; revisiting a temporary node means a cycle.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(n *node) *CycleError
	visit = func(n *node) *CycleError {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			// Trim the stack down to where the cycle entered, then close it.
			start := 0
			for i, id := range stack {
				if id == n.id {
					start = i
					break
				}
			}
			members := append([]string{}, stack[start:]...)
			return &CycleError{Members: append(members, n.id)}
		}

		temporary[n.id] = true
		stack = append(stack, n.id)

		for _, dep := range sortedNodes(n.dependents) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, n := range sortedNodes(g.nodes) {
		if !permanent[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
