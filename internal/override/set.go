package override

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Set holds every live override of one open project, keyed by field ID.
// Like the field store it is single-threaded: mutations happen only inside
// one execute/undo/redo call.
type Set struct {
	m map[string]*Override
}

// NewSet creates an empty override set.
func NewSet() *Set {
	return &Set{m: make(map[string]*Override)}
}

// Get returns the override attached to a field, if any.
func (s *Set) Get(fieldID string) (*Override, bool) {
	o, ok := s.m[fieldID]
	return o, ok
}

// Create attaches a new override in StatePending. A field can carry at most
// one override at a time.
func (s *Set) Create(fieldID string, v cty.Value) (*Override, error) {
	if _, exists := s.m[fieldID]; exists {
		return nil, fmt.Errorf("field %q already has an override", fieldID)
	}
	o := &Override{
		FieldID: fieldID,
		State:   StatePending,
		Value:   v,
		WouldBe: cty.NilVal,
	}
	s.m[fieldID] = o
	return o, nil
}

// Remove detaches the override from a field. This is a lifecycle event, not
// a state transition, so it is legal in any state.
func (s *Set) Remove(fieldID string) (*Override, bool) {
	o, ok := s.m[fieldID]
	if !ok {
		return nil, false
	}
	delete(s.m, fieldID)
	return o, true
}

// Put re-attaches a previously removed override, preserving its state. Used
// by undo replay; panics if the field already carries one.
func (s *Set) Put(o *Override) {
	if _, exists := s.m[o.FieldID]; exists {
		panic(fmt.Sprintf("override: field %q already has an override", o.FieldID))
	}
	s.m[o.FieldID] = o
}

// Transition moves an override along the user-driven transition table.
// Illegal moves are rejected with a TransitionError and no mutation.
func (s *Set) Transition(fieldID string, to State) error {
	o, ok := s.m[fieldID]
	if !ok {
		return fmt.Errorf("field %q has no override", fieldID)
	}
	if !o.State.CanTransitionTo(to) {
		return &TransitionError{FieldID: fieldID, From: o.State, To: to}
	}
	o.State = to
	return nil
}

// Restore forces an override into a given state without consulting the
// transition table. Only undo/redo replay may use it: history restores prior
// states that the table would otherwise forbid re-entering.
func (s *Set) Restore(fieldID string, state State) error {
	o, ok := s.m[fieldID]
	if !ok {
		return fmt.Errorf("field %q has no override", fieldID)
	}
	o.State = state
	return nil
}

// CleanupSynced removes every override in StateSynced and returns the
// affected field IDs. StateSyncedFormula overrides survive: their formula
// drifted into agreement on its own, so deleting them could silently change
// values on the next upstream edit. This is the hook a generation workflow
// calls after a successful export.
func (s *Set) CleanupSynced() []string {
	var removed []string
	for id, o := range s.m {
		if o.State == StateSynced {
			delete(s.m, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}

// FieldIDs returns the overridden field IDs in stable order.
func (s *Set) FieldIDs() []string {
	out := make([]string, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
