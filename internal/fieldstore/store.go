// Package fieldstore holds the current raw and computed values for every
// field of one open project. It is the single source of truth the rest of
// the core reads and writes.
//
// The store is deliberately lock-free: all mutations happen inside the span
// of one execute/undo/redo call, and the surrounding application serializes
// those calls per project session. A multi-threaded host must wrap the whole
// session with its own mutual exclusion.
package fieldstore

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/formwright/internal/config"
)

// Store maps field IDs to their current values.
type Store struct {
	values map[string]cty.Value
}

// New creates a store seeded from the schema model: raw fields hold their
// declared default or the null value of their kind, computed fields start
// null until the first cascade fills them in.
func New(model *config.Model) *Store {
	s := &Store{values: make(map[string]cty.Value, len(model.Fields))}
	for id, def := range model.Fields {
		if def.Computed() {
			s.values[id] = def.Kind.Null()
			continue
		}
		s.values[id] = def.InitialValue()
	}
	return s
}

// Get returns the current value of a field.
func (s *Store) Get(id string) (cty.Value, bool) {
	v, ok := s.values[id]
	return v, ok
}

// MustGet returns the current value of a field whose existence is guaranteed
// by the schema. A miss is a bug in the schema/build step, not a runtime
// condition, so it panics.
func (s *Store) MustGet(id string) cty.Value {
	v, ok := s.values[id]
	if !ok {
		panic(fmt.Sprintf("fieldstore: unknown field %q", id))
	}
	return v
}

// Set replaces the current value of a field. The field must already exist;
// fields are never created or deleted during a session.
func (s *Store) Set(id string, v cty.Value) error {
	if _, ok := s.values[id]; !ok {
		return fmt.Errorf("unknown field %q", id)
	}
	s.values[id] = v
	return nil
}

// Snapshot returns a copy of all current values, for collaborators that need
// a consistent view (export, persistence).
func (s *Store) Snapshot() map[string]cty.Value {
	out := make(map[string]cty.Value, len(s.values))
	for id, v := range s.values {
		out[id] = v
	}
	return out
}

// FieldIDs returns every field ID in stable order.
func (s *Store) FieldIDs() []string {
	out := make([]string, 0, len(s.values))
	for id := range s.values {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
