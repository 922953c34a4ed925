// Package session assembles the core for one open project: field store,
// dependency graph, cascade evaluator, override set, validation engine, and
// command history. It exposes the operation surface the application and
// presentation layers work against.
//
// A session is single-threaded: callers must serialize all mutating calls.
package session

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/formwright/internal/cascade"
	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/ctxlog"
	"github.com/specialistvlad/formwright/internal/dag"
	"github.com/specialistvlad/formwright/internal/fieldstore"
	"github.com/specialistvlad/formwright/internal/history"
	"github.com/specialistvlad/formwright/internal/override"
	"github.com/specialistvlad/formwright/internal/validation"
)

// Options tunes one session.
type Options struct {
	// UndoLimit bounds the undo stack; zero means history.DefaultLimit.
	UndoLimit int
}

// Session is one open project.
type Session struct {
	model     *config.Model
	graph     *dag.Graph
	store     *fieldstore.Store
	overrides *override.Set
	evaluator *cascade.Evaluator
	validator *validation.Engine
	engine    *history.Engine

	lastValidation *validation.Result
}

// Open instantiates a project from its schema model: fields seeded from
// defaults, dependency graph built (a cycle is fatal and the project does
// not open), computed values derived once, history empty.
func Open(ctx context.Context, model *config.Model, opts Options) (*Session, error) {
	logger := ctxlog.FromContext(ctx)

	graph, err := dag.Build(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("cannot open project: %w", err)
	}

	store := fieldstore.New(model)
	overrides := override.NewSet()
	evaluator := cascade.New(model, graph, store, overrides)

	validator, err := validation.NewEngine(model)
	if err != nil {
		return nil, fmt.Errorf("cannot open project: %w", err)
	}

	if _, err := evaluator.EvaluateAll(ctx); err != nil {
		return nil, fmt.Errorf("cannot seed computed fields: %w", err)
	}

	s := &Session{
		model:     model,
		graph:     graph,
		store:     store,
		overrides: overrides,
		evaluator: evaluator,
		validator: validator,
		engine:    history.NewEngine(store, overrides, evaluator, validator, opts.UndoLimit),
	}
	s.lastValidation = validator.Validate(store)

	logger.Info("Project session opened.",
		"fields", len(model.Fields), "constraints", len(model.Constraints))
	return s, nil
}

// Close ends the session. History does not survive a close.
func (s *Session) Close() {
	s.engine.Clear()
}

// --- Field store query port ---

// Get returns the current value of a field.
func (s *Session) Get(fieldID string) (cty.Value, error) {
	v, ok := s.store.Get(fieldID)
	if !ok {
		return cty.NilVal, fmt.Errorf("unknown field %q", fieldID)
	}
	return v, nil
}

// Snapshot returns a copy of all current field values for collaborators
// such as export adapters.
func (s *Session) Snapshot() map[string]cty.Value {
	return s.store.Snapshot()
}

// --- Command submission port ---

// Execute submits any field edit or override lifecycle change as a command.
func (s *Session) Execute(ctx context.Context, cmd history.Command) (*history.Outcome, error) {
	outcome, err := s.engine.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.lastValidation = outcome.Validation
	return outcome, nil
}

// Undo reverses the most recent command and re-derives all affected
// computed values.
func (s *Session) Undo(ctx context.Context) (*history.Outcome, error) {
	outcome, err := s.engine.Undo(ctx)
	if err != nil {
		return nil, err
	}
	s.lastValidation = outcome.Validation
	return outcome, nil
}

// Redo replays the most recently undone command.
func (s *Session) Redo(ctx context.Context) (*history.Outcome, error) {
	outcome, err := s.engine.Redo(ctx)
	if err != nil {
		return nil, err
	}
	s.lastValidation = outcome.Validation
	return outcome, nil
}

// CanUndo reports whether an undo is available.
func (s *Session) CanUndo() bool { return s.engine.CanUndo() }

// CanRedo reports whether a redo is available.
func (s *Session) CanRedo() bool { return s.engine.CanRedo() }

// --- Convenience command builders ---

// SetField edits a raw field. The value is coerced to the field's kind
// before the command is built; computed fields must go through overrides.
func (s *Session) SetField(ctx context.Context, fieldID string, v cty.Value) (*history.Outcome, error) {
	def, ok := s.model.Fields[fieldID]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", fieldID)
	}
	if def.Computed() {
		return nil, fmt.Errorf("field %q is computed; use an override to supersede its value", fieldID)
	}
	converted, err := def.Kind.Convert(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", fieldID, err)
	}
	return s.Execute(ctx, history.NewSetField(fieldID, s.store.MustGet(fieldID), converted))
}

// OverrideField layers a manual value over a computed field. The new
// override starts in the pending state.
func (s *Session) OverrideField(ctx context.Context, fieldID string, v cty.Value) (*history.Outcome, error) {
	def, ok := s.model.Fields[fieldID]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", fieldID)
	}
	if !def.Computed() {
		return nil, fmt.Errorf("field %q is not computed; edit it directly", fieldID)
	}
	converted, err := def.Kind.Convert(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", fieldID, err)
	}
	return s.Execute(ctx, history.NewCreateOverride(fieldID, converted))
}

// AcceptOverride confirms a pending override.
func (s *Session) AcceptOverride(ctx context.Context, fieldID string) (*history.Outcome, error) {
	return s.transitionOverride(ctx, fieldID, override.StateAccepted)
}

// InvalidateOverride marks an override as inconsistent, requiring re-entry.
func (s *Session) InvalidateOverride(ctx context.Context, fieldID string) (*history.Outcome, error) {
	return s.transitionOverride(ctx, fieldID, override.StateInvalid)
}

func (s *Session) transitionOverride(ctx context.Context, fieldID string, to override.State) (*history.Outcome, error) {
	o, ok := s.overrides.Get(fieldID)
	if !ok {
		return nil, fmt.Errorf("field %q has no override", fieldID)
	}
	return s.Execute(ctx, history.NewTransitionOverride(fieldID, o.State, to))
}

// RemoveOverride discards an override entirely; the field's formula takes
// effect again on the next cascade.
func (s *Session) RemoveOverride(ctx context.Context, fieldID string) (*history.Outcome, error) {
	return s.Execute(ctx, history.NewRemoveOverride(fieldID))
}

// Overrides returns a copy of every active override, sorted by field ID,
// for history views and inspectors.
func (s *Session) Overrides() []override.Override {
	ids := s.overrides.FieldIDs()
	out := make([]override.Override, 0, len(ids))
	for _, id := range ids {
		o, _ := s.overrides.Get(id)
		out = append(out, *o)
	}
	return out
}

// OverrideState returns the state of the override on a field, if any.
func (s *Session) OverrideState(fieldID string) (override.State, bool) {
	o, ok := s.overrides.Get(fieldID)
	if !ok {
		return "", false
	}
	return o.State, true
}

// --- Validation result port ---

// Validation returns the result of the most recent validation pass. A
// generation-gating collaborator reads BlocksWorkflow from it.
func (s *Session) Validation() *validation.Result {
	return s.lastValidation
}

// --- Override cleanup hook ---

// CleanupSyncedOverrides removes every override whose formula converged
// through direct input edits (state synced; synced_formula survives). A
// document-generation workflow calls this after a successful export. It is
// a collaborator lifecycle event, not a command, so it does not participate
// in undo history.
func (s *Session) CleanupSyncedOverrides(ctx context.Context) ([]string, error) {
	removed := s.overrides.CleanupSynced()
	if len(removed) == 0 {
		return nil, nil
	}
	// The shields are gone; re-derive the affected fields. A synced
	// override equals its formula result by definition, so values do not
	// change, but the store must not depend on that invariant.
	if _, err := s.evaluator.Evaluate(ctx, removed); err != nil {
		return removed, err
	}
	s.lastValidation = s.validator.Validate(s.store)
	ctxlog.FromContext(ctx).Debug("Cleaned up synced overrides.", "fields", removed)
	return removed, nil
}
