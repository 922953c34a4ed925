package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/formwright/internal/cascade"
	"github.com/specialistvlad/formwright/internal/ctxlog"
	"github.com/specialistvlad/formwright/internal/fieldstore"
	"github.com/specialistvlad/formwright/internal/override"
	"github.com/specialistvlad/formwright/internal/validation"
)

// DefaultLimit bounds the undo stack when the caller does not configure one.
const DefaultLimit = 100

var (
	// ErrNothingToUndo is returned by Undo on an empty undo stack.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo on an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// CommandError wraps a command whose mutation was rejected. No state changed.
type CommandError struct {
	Cmd Command
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s rejected: %v", e.Cmd.Describe(), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Outcome reports what one execute/undo/redo call did downstream of the
// mutation itself.
type Outcome struct {
	Cascade    *cascade.Result
	Validation *validation.Result
}

// record is one executed command plus the automatic override transitions its
// cascade performed, which undo must reverse before replaying the inverse.
type record struct {
	cmd         Command
	autoChanges []cascade.StateChange
}

// Engine owns the undo/redo stacks and drives the mutate-cascade-validate
// pipeline for every command, in both directions.
type Engine struct {
	store     *fieldstore.Store
	overrides *override.Set
	evaluator *cascade.Evaluator
	validator *validation.Engine
	limit     int

	undo []*record
	redo []*record
}

// NewEngine creates an engine with empty stacks. A non-positive limit falls
// back to DefaultLimit.
func NewEngine(store *fieldstore.Store, overrides *override.Set, evaluator *cascade.Evaluator, validator *validation.Engine, limit int) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{
		store:     store,
		overrides: overrides,
		evaluator: evaluator,
		validator: validator,
		limit:     limit,
	}
}

// CanUndo reports whether the undo stack is non-empty.
func (e *Engine) CanUndo() bool { return len(e.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (e *Engine) CanRedo() bool { return len(e.redo) > 0 }

// Depth returns the current undo stack depth.
func (e *Engine) Depth() int { return len(e.undo) }

// Clear empties both stacks. Called on project open and close; a save never
// touches history.
func (e *Engine) Clear() {
	e.undo = nil
	e.redo = nil
}

// Execute applies a command, pushes it onto the undo stack, discards any
// redo history, and re-enters the cascade and validation pipeline.
func (e *Engine) Execute(ctx context.Context, cmd Command) (*Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	if err := cmd.Apply(e.store, e.overrides); err != nil {
		return nil, &CommandError{Cmd: cmd, Err: err}
	}
	logger.Debug("Command applied.", "command", cmd.Describe(), "command_id", cmd.ID())

	rec := &record{cmd: cmd}
	e.push(rec)
	e.redo = nil

	outcome, err := e.settle(ctx, rec, cmd.ChangedFields())
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Undo reverses the most recent command: recorded automatic override
// transitions are rolled back first, then the inverse mutation is applied,
// then the cascade re-derives every affected computed value from scratch.
func (e *Engine) Undo(ctx context.Context) (*Outcome, error) {
	logger := ctxlog.FromContext(ctx)
	if !e.CanUndo() {
		return nil, ErrNothingToUndo
	}

	rec := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]

	for i := len(rec.autoChanges) - 1; i >= 0; i-- {
		change := rec.autoChanges[i]
		if _, ok := e.overrides.Get(change.FieldID); !ok {
			// The override was cleaned up by a collaborator after this
			// command ran; there is no state left to roll back.
			logger.Debug("Skipping state rollback for removed override.", "field", change.FieldID)
			continue
		}
		if err := e.overrides.Restore(change.FieldID, change.From); err != nil {
			panic(fmt.Sprintf("history: recorded override state cannot be restored: %v", err))
		}
	}

	inverse := rec.cmd.Invert()
	if err := inverse.Apply(e.store, e.overrides); err != nil {
		if !errors.Is(err, ErrNoOverride) {
			// The inverse of an applied command must otherwise apply
			// cleanly; anything else means history and state have diverged.
			panic(fmt.Sprintf("history: inverse of %s failed: %v", rec.cmd.Describe(), err))
		}
		// The override this command touched was cleaned up by a
		// collaborator; there is nothing left to mutate.
		logger.Debug("Skipping inverse for removed override.", "command", rec.cmd.Describe())
	}
	logger.Debug("Command undone.", "command", rec.cmd.Describe(), "command_id", rec.cmd.ID())

	e.redo = append(e.redo, rec)
	return e.settle(ctx, nil, inverse.ChangedFields())
}

// Redo replays the most recently undone command forward again.
func (e *Engine) Redo(ctx context.Context) (*Outcome, error) {
	logger := ctxlog.FromContext(ctx)
	if !e.CanRedo() {
		return nil, ErrNothingToRedo
	}

	rec := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]

	if err := rec.cmd.Apply(e.store, e.overrides); err != nil {
		if !errors.Is(err, ErrNoOverride) {
			panic(fmt.Sprintf("history: redo of %s failed: %v", rec.cmd.Describe(), err))
		}
		logger.Debug("Skipping redo for removed override.", "command", rec.cmd.Describe())
	}
	logger.Debug("Command redone.", "command", rec.cmd.Describe(), "command_id", rec.cmd.ID())

	rec.autoChanges = nil
	e.push(rec)
	return e.settle(ctx, rec, rec.cmd.ChangedFields())
}

// settle runs the cascade over the changed fields and re-validates. When rec
// is non-nil, automatic override transitions are recorded on it for undo.
func (e *Engine) settle(ctx context.Context, rec *record, changed []string) (*Outcome, error) {
	result, err := e.evaluator.Evaluate(ctx, changed)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		rec.autoChanges = result.OverrideChanges
	}
	return &Outcome{
		Cascade:    result,
		Validation: e.validator.Validate(e.store),
	}, nil
}

// push appends a record, evicting the oldest entry once the bound is hit.
func (e *Engine) push(rec *record) {
	if len(e.undo) == e.limit {
		e.undo = e.undo[1:]
	}
	e.undo = append(e.undo, rec)
}
