package history

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/formwright/internal/fieldstore"
	"github.com/specialistvlad/formwright/internal/override"
)

// ErrNoOverride reports that a command targets an override that does not
// exist. During replay this is a tolerated condition: a collaborator's
// cleanup may have removed the override after the command was recorded.
var ErrNoOverride = errors.New("no override")

// Command is one reified, invertible user action. Apply performs the minimal
// mutation against the store and override set; the cascade and validation
// that follow are the engine's job.
type Command interface {
	// ID is a stable identity for surfacing history to collaborators.
	ID() uuid.UUID
	// Describe names the action for logs and history views.
	Describe() string
	// ChangedFields lists the fields whose value or effective value the
	// mutation touches. They seed the cascade.
	ChangedFields() []string
	// Apply performs the mutation. It must either fully apply or leave
	// state untouched.
	Apply(store *fieldstore.Store, overrides *override.Set) error
	// Invert returns the command that exactly reverses this mutation.
	Invert() Command
}

// SetField replaces the raw value of one field. Old carries the inverse.
type SetField struct {
	id      uuid.UUID
	FieldID string
	Old     cty.Value
	New     cty.Value
}

// NewSetField builds a raw-edit command. The caller supplies the current
// value as Old so the command stays self-contained for inversion.
func NewSetField(fieldID string, old, new cty.Value) *SetField {
	return &SetField{id: uuid.New(), FieldID: fieldID, Old: old, New: new}
}

func (c *SetField) ID() uuid.UUID { return c.id }

func (c *SetField) Describe() string {
	return fmt.Sprintf("set field %q", c.FieldID)
}

func (c *SetField) ChangedFields() []string { return []string{c.FieldID} }

func (c *SetField) Apply(store *fieldstore.Store, _ *override.Set) error {
	return store.Set(c.FieldID, c.New)
}

func (c *SetField) Invert() Command {
	return &SetField{id: uuid.New(), FieldID: c.FieldID, Old: c.New, New: c.Old}
}

// CreateOverride attaches a pending override to a computed field. Its
// inverse removes the override again; the field's computed value is then
// re-derived by the cascade, not restored.
type CreateOverride struct {
	id      uuid.UUID
	FieldID string
	Value   cty.Value
}

// NewCreateOverride builds an override-creation command.
func NewCreateOverride(fieldID string, v cty.Value) *CreateOverride {
	return &CreateOverride{id: uuid.New(), FieldID: fieldID, Value: v}
}

func (c *CreateOverride) ID() uuid.UUID { return c.id }

func (c *CreateOverride) Describe() string {
	return fmt.Sprintf("override field %q", c.FieldID)
}

func (c *CreateOverride) ChangedFields() []string { return []string{c.FieldID} }

func (c *CreateOverride) Apply(_ *fieldstore.Store, overrides *override.Set) error {
	_, err := overrides.Create(c.FieldID, c.Value)
	return err
}

func (c *CreateOverride) Invert() Command {
	return &discardOverride{id: uuid.New(), FieldID: c.FieldID}
}

// RemoveOverride detaches an override entirely, a lifecycle event legal in
// any state. Apply snapshots the removed override so the inverse can
// re-attach it with its state intact.
type RemoveOverride struct {
	id       uuid.UUID
	FieldID  string
	snapshot *override.Override
}

// NewRemoveOverride builds an override-removal command.
func NewRemoveOverride(fieldID string) *RemoveOverride {
	return &RemoveOverride{id: uuid.New(), FieldID: fieldID}
}

func (c *RemoveOverride) ID() uuid.UUID { return c.id }

func (c *RemoveOverride) Describe() string {
	return fmt.Sprintf("remove override of field %q", c.FieldID)
}

func (c *RemoveOverride) ChangedFields() []string { return []string{c.FieldID} }

func (c *RemoveOverride) Apply(_ *fieldstore.Store, overrides *override.Set) error {
	o, ok := overrides.Remove(c.FieldID)
	if !ok {
		return fmt.Errorf("field %q: %w", c.FieldID, ErrNoOverride)
	}
	c.snapshot = o
	return nil
}

func (c *RemoveOverride) Invert() Command {
	if c.snapshot == nil {
		panic("history: RemoveOverride inverted before it was applied")
	}
	return &restoreOverride{id: uuid.New(), snapshot: c.snapshot}
}

// discardOverride is the inverse of CreateOverride: it removes the override
// without keeping a snapshot, because redo re-creates it in StatePending.
type discardOverride struct {
	id      uuid.UUID
	FieldID string
	value   cty.Value
}

func (c *discardOverride) ID() uuid.UUID { return c.id }

func (c *discardOverride) Describe() string {
	return fmt.Sprintf("discard override of field %q", c.FieldID)
}

func (c *discardOverride) ChangedFields() []string { return []string{c.FieldID} }

func (c *discardOverride) Apply(_ *fieldstore.Store, overrides *override.Set) error {
	o, ok := overrides.Remove(c.FieldID)
	if !ok {
		return fmt.Errorf("field %q: %w", c.FieldID, ErrNoOverride)
	}
	c.value = o.Value
	return nil
}

func (c *discardOverride) Invert() Command {
	return &CreateOverride{id: uuid.New(), FieldID: c.FieldID, Value: c.value}
}

// restoreOverride is the inverse of RemoveOverride: it re-attaches a
// snapshotted override, state and all.
type restoreOverride struct {
	id       uuid.UUID
	snapshot *override.Override
}

func (c *restoreOverride) ID() uuid.UUID { return c.id }

func (c *restoreOverride) Describe() string {
	return fmt.Sprintf("restore override of field %q", c.snapshot.FieldID)
}

func (c *restoreOverride) ChangedFields() []string { return []string{c.snapshot.FieldID} }

func (c *restoreOverride) Apply(_ *fieldstore.Store, overrides *override.Set) error {
	clone := *c.snapshot
	overrides.Put(&clone)
	return nil
}

func (c *restoreOverride) Invert() Command {
	return &RemoveOverride{id: uuid.New(), FieldID: c.snapshot.FieldID}
}

// TransitionOverride moves an override along the state machine. The forward
// direction consults the transition table; the inverse replays with forced
// set, because legal transitions are not themselves legally reversible.
type TransitionOverride struct {
	id      uuid.UUID
	FieldID string
	From    override.State
	To      override.State
	forced  bool
}

// NewTransitionOverride builds a state-transition command. From must be the
// override's current state; Apply rejects the command otherwise.
func NewTransitionOverride(fieldID string, from, to override.State) *TransitionOverride {
	return &TransitionOverride{id: uuid.New(), FieldID: fieldID, From: from, To: to}
}

func (c *TransitionOverride) ID() uuid.UUID { return c.id }

func (c *TransitionOverride) Describe() string {
	return fmt.Sprintf("transition override of field %q: %s -> %s", c.FieldID, c.From, c.To)
}

func (c *TransitionOverride) ChangedFields() []string { return []string{c.FieldID} }

func (c *TransitionOverride) Apply(_ *fieldstore.Store, overrides *override.Set) error {
	o, ok := overrides.Get(c.FieldID)
	if !ok {
		return fmt.Errorf("field %q: %w", c.FieldID, ErrNoOverride)
	}
	if o.State != c.From {
		return fmt.Errorf("override of field %q is in state %s, expected %s", c.FieldID, o.State, c.From)
	}
	if c.forced {
		return overrides.Restore(c.FieldID, c.To)
	}
	return overrides.Transition(c.FieldID, c.To)
}

func (c *TransitionOverride) Invert() Command {
	return &TransitionOverride{id: uuid.New(), FieldID: c.FieldID, From: c.To, To: c.From, forced: true}
}
