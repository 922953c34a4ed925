package override

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// State is the lifecycle state of one override.
type State string

const (
	// StatePending: a manual value has been entered but not yet confirmed
	// against the latest computed value.
	StatePending State = "pending"
	// StateAccepted: the user confirmed the manual value supersedes the
	// computed one; the cascade now compares instead of replacing.
	StateAccepted State = "accepted"
	// StateSynced: the formula result converged with the override value
	// because the user drove the raw inputs to match. Eligible for cleanup
	// after document generation.
	StateSynced State = "synced"
	// StateSyncedFormula: the formula output drifted to match the override
	// without a direct edit to the field's inputs. Preserved across
	// generation cleanup.
	StateSyncedFormula State = "synced_formula"
	// StateInvalid: the override's field or context became inconsistent.
	// Terminal; requires user re-entry.
	StateInvalid State = "invalid"
)

// transitions is the allowed user-driven transition table. Removal of an
// override is a separate lifecycle event, not a transition, so terminal
// states map to nothing.
var transitions = map[State][]State{
	StatePending:       {StateAccepted, StateInvalid},
	StateAccepted:      {StateSynced, StateSyncedFormula},
	StateSynced:        {},
	StateSyncedFormula: {},
	StateInvalid:       {},
}

// CanTransitionTo reports whether the state machine allows moving to the
// given state.
func (s State) CanTransitionTo(to State) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Shields reports whether an override in this state keeps the cascade from
// replacing the field's stored value with the fresh formula result.
func (s State) Shields() bool {
	switch s {
	case StatePending, StateAccepted, StateSynced, StateSyncedFormula:
		return true
	default:
		return false
	}
}

// TransitionError reports an attempt to move an override outside the allowed
// transition set. No mutation happens on a rejected transition.
type TransitionError struct {
	FieldID string
	From    State
	To      State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid override transition for field %q: %s -> %s", e.FieldID, e.From, e.To)
}

// Override is a manual value attached to one computed field.
type Override struct {
	FieldID string
	State   State
	// Value is the user-supplied value that supersedes the computed one.
	Value cty.Value
	// WouldBe is the most recent formula result observed while the override
	// was in effect. The convergence predicate compares it against Value.
	WouldBe cty.Value
}

// Converge decides which synced state an accepted override enters once its
// freshly computed would-be value equals the override value.
//
// The rule: if any *direct* dependency of the overridden field is among the
// fields the user edited in the triggering command, the user drove the
// inputs to the match (StateSynced). Otherwise the formula output drifted to
// the match transitively (StateSyncedFormula).
func Converge(directEdits map[string]bool, directDeps []string) State {
	for _, dep := range directDeps {
		if directEdits[dep] {
			return StateSynced
		}
	}
	return StateSyncedFormula
}
