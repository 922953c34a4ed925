package history

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/formwright/internal/cascade"
	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/dag"
	"github.com/specialistvlad/formwright/internal/fieldstore"
	"github.com/specialistvlad/formwright/internal/override"
	"github.com/specialistvlad/formwright/internal/validation"
	"github.com/specialistvlad/formwright/internal/value"
)

// newTestEngine builds a full pipeline over raw number fields and formulas,
// mirroring how a session wires the engine.
func newTestEngine(t *testing.T, raw map[string]cty.Value, formulas map[string]string, limit int) (*Engine, *fieldstore.Store, *override.Set) {
	t.Helper()
	model := &config.Model{Fields: make(map[string]*config.FieldDef)}
	for id, def := range raw {
		d := def
		model.Fields[id] = &config.FieldDef{ID: id, Kind: value.Number, Default: &d}
	}
	for id, src := range formulas {
		expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.Pos{Line: 1, Column: 1})
		require.False(t, diags.HasErrors())
		seen := make(map[string]bool)
		var deps []string
		for _, traversal := range expr.Variables() {
			if name := traversal.RootName(); !seen[name] {
				seen[name] = true
				deps = append(deps, name)
			}
		}
		model.Fields[id] = &config.FieldDef{
			ID: id, Kind: value.Number,
			Formula: &config.FormulaDef{FieldID: id, Expression: expr, Dependencies: deps},
		}
	}

	graph, err := dag.Build(context.Background(), model)
	require.NoError(t, err)
	store := fieldstore.New(model)
	overrides := override.NewSet()
	evaluator := cascade.New(model, graph, store, overrides)
	validator, err := validation.NewEngine(model)
	require.NoError(t, err)

	_, err = evaluator.EvaluateAll(context.Background())
	require.NoError(t, err)

	return NewEngine(store, overrides, evaluator, validator, limit), store, overrides
}

func num(n int64) cty.Value { return cty.NumberIntVal(n) }

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("edit cascades into computed fields", func(t *testing.T) {
		engine, store, _ := newTestEngine(t,
			map[string]cty.Value{"a": num(5)},
			map[string]string{"b": "a * 2"}, 0)

		outcome, err := engine.Execute(ctx, NewSetField("a", store.MustGet("a"), num(7)))
		require.NoError(t, err)
		assert.True(t, store.MustGet("a").RawEquals(num(7)))
		assert.True(t, store.MustGet("b").RawEquals(num(14)))
		assert.True(t, outcome.Cascade.Recomputed["b"].RawEquals(num(14)))
		assert.True(t, engine.CanUndo())
		assert.False(t, engine.CanRedo())
	})

	t.Run("rejected command leaves state and stacks untouched", func(t *testing.T) {
		engine, store, _ := newTestEngine(t,
			map[string]cty.Value{"a": num(5)},
			map[string]string{"b": "a * 2"}, 0)

		_, err := engine.Execute(ctx, NewSetField("ghost", cty.NullVal(cty.Number), num(1)))
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.False(t, engine.CanUndo())
		assert.True(t, store.MustGet("a").RawEquals(num(5)))
	})

	t.Run("illegal override transition is rejected without mutation", func(t *testing.T) {
		engine, store, overrides := newTestEngine(t,
			map[string]cty.Value{"a": num(5)},
			map[string]string{"b": "a * 2"}, 0)

		_, err := engine.Execute(ctx, NewCreateOverride("b", num(99)))
		require.NoError(t, err)

		_, err = engine.Execute(ctx, NewTransitionOverride("b", override.StatePending, override.StateSynced))
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
		var transErr *override.TransitionError
		assert.ErrorAs(t, err, &transErr)

		o, _ := overrides.Get("b")
		assert.Equal(t, override.StatePending, o.State)
		assert.Equal(t, 1, engine.Depth(), "rejected command not pushed")
		_ = store
	})
}

func TestUndoRedo(t *testing.T) {
	ctx := context.Background()

	t.Run("undo re-derives computed fields instead of restoring them", func(t *testing.T) {
		engine, store, _ := newTestEngine(t,
			map[string]cty.Value{"a": num(5)},
			map[string]string{"b": "a * 2"}, 0)

		_, err := engine.Execute(ctx, NewSetField("a", store.MustGet("a"), num(9)))
		require.NoError(t, err)
		require.True(t, store.MustGet("b").RawEquals(num(18)))

		_, err = engine.Undo(ctx)
		require.NoError(t, err)
		assert.True(t, store.MustGet("a").RawEquals(num(5)))
		assert.True(t, store.MustGet("b").RawEquals(num(10)), "b recomputed from restored a")

		_, err = engine.Redo(ctx)
		require.NoError(t, err)
		assert.True(t, store.MustGet("a").RawEquals(num(9)))
		assert.True(t, store.MustGet("b").RawEquals(num(18)))
	})

	t.Run("n commands undo back to the initial state", func(t *testing.T) {
		engine, store, _ := newTestEngine(t,
			map[string]cty.Value{"a": num(1), "c": num(100)},
			map[string]string{"b": "a + c"}, 0)

		edits := []struct {
			field string
			to    cty.Value
		}{
			{"a", num(2)},
			{"c", num(200)},
			{"a", num(3)},
		}
		for _, e := range edits {
			_, err := engine.Execute(ctx, NewSetField(e.field, store.MustGet(e.field), e.to))
			require.NoError(t, err)
		}
		require.True(t, store.MustGet("b").RawEquals(num(203)))

		for range edits {
			_, err := engine.Undo(ctx)
			require.NoError(t, err)
		}
		assert.True(t, store.MustGet("a").RawEquals(num(1)))
		assert.True(t, store.MustGet("c").RawEquals(num(100)))
		assert.True(t, store.MustGet("b").RawEquals(num(101)))
		assert.False(t, engine.CanUndo())
	})

	t.Run("empty stacks are rejected", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, map[string]cty.Value{"a": num(1)}, nil, 0)

		_, err := engine.Undo(ctx)
		assert.ErrorIs(t, err, ErrNothingToUndo)
		_, err = engine.Redo(ctx)
		assert.ErrorIs(t, err, ErrNothingToRedo)
	})

	t.Run("new command clears the redo stack", func(t *testing.T) {
		engine, store, _ := newTestEngine(t,
			map[string]cty.Value{"a": num(1)},
			map[string]string{"b": "a * 2"}, 0)

		_, err := engine.Execute(ctx, NewSetField("a", store.MustGet("a"), num(2)))
		require.NoError(t, err)
		_, err = engine.Undo(ctx)
		require.NoError(t, err)
		require.True(t, engine.CanRedo())

		_, err = engine.Execute(ctx, NewSetField("a", store.MustGet("a"), num(3)))
		require.NoError(t, err)
		assert.False(t, engine.CanRedo())
		_, err = engine.Redo(ctx)
		assert.ErrorIs(t, err, ErrNothingToRedo)
	})

	t.Run("stack depth is bounded with silent eviction", func(t *testing.T) {
		engine, store, _ := newTestEngine(t, map[string]cty.Value{"a": num(0)}, nil, 2)

		for i := int64(1); i <= 3; i++ {
			_, err := engine.Execute(ctx, NewSetField("a", store.MustGet("a"), num(i)))
			require.NoError(t, err)
		}
		assert.Equal(t, 2, engine.Depth())

		_, err := engine.Undo(ctx)
		require.NoError(t, err)
		_, err = engine.Undo(ctx)
		require.NoError(t, err)
		_, err = engine.Undo(ctx)
		assert.ErrorIs(t, err, ErrNothingToUndo, "evicted command is gone")
		assert.True(t, store.MustGet("a").RawEquals(num(1)), "history bottoms out at the evicted edit")
	})

	t.Run("clear empties both stacks", func(t *testing.T) {
		engine, store, _ := newTestEngine(t, map[string]cty.Value{"a": num(0)}, nil, 0)
		_, err := engine.Execute(ctx, NewSetField("a", store.MustGet("a"), num(1)))
		require.NoError(t, err)
		_, err = engine.Undo(ctx)
		require.NoError(t, err)

		engine.Clear()
		assert.False(t, engine.CanUndo())
		assert.False(t, engine.CanRedo())
	})
}

func TestOverrideCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("create, accept, converge, and undo the whole chain", func(t *testing.T) {
		engine, store, overrides := newTestEngine(t,
			map[string]cty.Value{"a": num(5)},
			map[string]string{"b": "a * 2"}, 0)

		_, err := engine.Execute(ctx, NewCreateOverride("b", num(100)))
		require.NoError(t, err)
		o, _ := overrides.Get("b")
		assert.Equal(t, override.StatePending, o.State)
		assert.True(t, store.MustGet("b").RawEquals(num(100)), "pending override is the effective value")

		_, err = engine.Execute(ctx, NewTransitionOverride("b", override.StatePending, override.StateAccepted))
		require.NoError(t, err)

		// Drive the raw input so the formula matches the override.
		outcome, err := engine.Execute(ctx, NewSetField("a", store.MustGet("a"), num(50)))
		require.NoError(t, err)
		o, _ = overrides.Get("b")
		assert.Equal(t, override.StateSynced, o.State)
		require.Len(t, outcome.Cascade.OverrideChanges, 1)

		// Undo the edit: the automatic convergence rolls back too.
		_, err = engine.Undo(ctx)
		require.NoError(t, err)
		o, _ = overrides.Get("b")
		assert.Equal(t, override.StateAccepted, o.State)
		assert.True(t, store.MustGet("a").RawEquals(num(5)))

		// Redo converges again.
		_, err = engine.Redo(ctx)
		require.NoError(t, err)
		o, _ = overrides.Get("b")
		assert.Equal(t, override.StateSynced, o.State)

		// Unwind everything: the override disappears and b is re-derived.
		for engine.CanUndo() {
			_, err = engine.Undo(ctx)
			require.NoError(t, err)
		}
		_, exists := overrides.Get("b")
		assert.False(t, exists)
		assert.True(t, store.MustGet("b").RawEquals(num(10)))
	})

	t.Run("remove override restores state on undo", func(t *testing.T) {
		engine, store, overrides := newTestEngine(t,
			map[string]cty.Value{"a": num(5)},
			map[string]string{"b": "a * 2"}, 0)

		_, err := engine.Execute(ctx, NewCreateOverride("b", num(42)))
		require.NoError(t, err)
		_, err = engine.Execute(ctx, NewTransitionOverride("b", override.StatePending, override.StateAccepted))
		require.NoError(t, err)

		_, err = engine.Execute(ctx, NewRemoveOverride("b"))
		require.NoError(t, err)
		_, exists := overrides.Get("b")
		assert.False(t, exists)
		assert.True(t, store.MustGet("b").RawEquals(num(10)), "formula result back in effect")

		_, err = engine.Undo(ctx)
		require.NoError(t, err)
		o, _ := overrides.Get("b")
		require.NotNil(t, o)
		assert.Equal(t, override.StateAccepted, o.State, "state survives the round trip")
		assert.True(t, store.MustGet("b").RawEquals(num(42)))
	})

	t.Run("undo survives a cleanup that removed the override", func(t *testing.T) {
		engine, store, overrides := newTestEngine(t,
			map[string]cty.Value{"a": num(5)},
			map[string]string{"b": "a * 2"}, 0)

		_, err := engine.Execute(ctx, NewCreateOverride("b", num(100)))
		require.NoError(t, err)
		_, err = engine.Execute(ctx, NewTransitionOverride("b", override.StatePending, override.StateAccepted))
		require.NoError(t, err)
		_, err = engine.Execute(ctx, NewSetField("a", store.MustGet("a"), num(50)))
		require.NoError(t, err)
		o, _ := overrides.Get("b")
		require.Equal(t, override.StateSynced, o.State)

		// A collaborator cleans up the converged override out from under
		// the recorded history.
		require.Equal(t, []string{"b"}, overrides.CleanupSynced())

		// Unwinding must not panic; override mutations with nothing left
		// to target are skipped and the raw edits still roll back.
		for engine.CanUndo() {
			_, err = engine.Undo(ctx)
			require.NoError(t, err)
		}
		assert.True(t, store.MustGet("a").RawEquals(num(5)))
		_, exists := overrides.Get("b")
		assert.False(t, exists)

		// Replaying forward tolerates the gap the same way.
		for engine.CanRedo() {
			_, err = engine.Redo(ctx)
			require.NoError(t, err)
		}
		assert.True(t, store.MustGet("a").RawEquals(num(50)))
	})

	t.Run("undo of an accept is forced past the transition table", func(t *testing.T) {
		engine, _, overrides := newTestEngine(t,
			map[string]cty.Value{"a": num(5)},
			map[string]string{"b": "a * 2"}, 0)

		_, err := engine.Execute(ctx, NewCreateOverride("b", num(77)))
		require.NoError(t, err)
		_, err = engine.Execute(ctx, NewTransitionOverride("b", override.StatePending, override.StateAccepted))
		require.NoError(t, err)

		_, err = engine.Undo(ctx)
		require.NoError(t, err)
		o, _ := overrides.Get("b")
		assert.Equal(t, override.StatePending, o.State)
	})
}
