package cascade

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/ctxlog"
	"github.com/specialistvlad/formwright/internal/dag"
	"github.com/specialistvlad/formwright/internal/fieldstore"
	"github.com/specialistvlad/formwright/internal/override"
	"github.com/specialistvlad/formwright/internal/value"
)

// RuntimeError reports a formula that failed to evaluate. It is recovered
// locally: the field gets an error-marked value and the cascade continues.
type RuntimeError struct {
	FieldID string
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("formula of field %q failed: %s", e.FieldID, e.Message)
}

// StateChange records an override state flip the cascade performed
// automatically, so history can restore the prior state on undo.
type StateChange struct {
	FieldID string
	From    override.State
	To      override.State
}

// Result reports what one cascade did.
type Result struct {
	// Recomputed maps each visited field whose stored value was replaced to
	// its fresh value. Shielded (overridden) fields do not appear here.
	Recomputed map[string]cty.Value
	// Errors lists the formulas that failed and were recovered locally.
	Errors []*RuntimeError
	// OverrideChanges lists automatic convergence transitions.
	OverrideChanges []StateChange
}

// Evaluator recomputes computed fields in dependency order.
type Evaluator struct {
	model     *config.Model
	graph     *dag.Graph
	store     *fieldstore.Store
	overrides *override.Set
	funcs     map[string]function.Function
}

// New creates an evaluator bound to one project's model, graph, store, and
// override set.
func New(model *config.Model, graph *dag.Graph, store *fieldstore.Store, overrides *override.Set) *Evaluator {
	return &Evaluator{
		model:     model,
		graph:     graph,
		store:     store,
		overrides: overrides,
		funcs:     Functions(),
	}
}

// Evaluate recomputes every computed field transitively affected by the
// given directly changed fields. Visiting happens in topological order, so
// no field is recomputed before all of its dependencies are final.
func (e *Evaluator) Evaluate(ctx context.Context, changed []string) (*Result, error) {
	closure, err := e.graph.Closure(changed)
	if err != nil {
		return nil, err
	}
	directEdits := make(map[string]bool, len(changed))
	for _, id := range changed {
		directEdits[id] = true
	}
	return e.run(ctx, closure, directEdits)
}

// EvaluateAll recomputes every computed field of the project. Used once at
// project open to seed computed values from defaults.
func (e *Evaluator) EvaluateAll(ctx context.Context) (*Result, error) {
	var computed []string
	for id, def := range e.model.Fields {
		if def.Computed() {
			computed = append(computed, id)
		}
	}
	return e.run(ctx, computed, nil)
}

func (e *Evaluator) run(ctx context.Context, closure []string, directEdits map[string]bool) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	order, err := e.graph.TopoOrder(closure)
	if err != nil {
		return nil, err
	}
	logger.Debug("Cascade starting.", "affected_count", len(order))

	result := &Result{Recomputed: make(map[string]cty.Value)}

	for _, id := range order {
		def, ok := e.model.Fields[id]
		if !ok || def.Formula == nil {
			panic(fmt.Sprintf("cascade: closure contains non-computed field %q", id))
		}

		wouldBe, runtimeErr := e.evalFormula(def)
		if runtimeErr != nil {
			logger.Debug("Formula failed, recovering with error value.",
				"field", id, "error", runtimeErr.Message)
			result.Errors = append(result.Errors, runtimeErr)
		}

		o, hasOverride := e.overrides.Get(id)
		if hasOverride && o.State.Shields() {
			e.applyShielded(ctx, def, o, wouldBe, directEdits, result)
			continue
		}

		if err := e.store.Set(id, wouldBe); err != nil {
			return nil, err
		}
		result.Recomputed[id] = wouldBe
	}

	logger.Debug("Cascade finished.",
		"recomputed", len(result.Recomputed),
		"errors", len(result.Errors),
		"override_changes", len(result.OverrideChanges))
	return result, nil
}

// applyShielded handles a visited field whose override is in effect: the
// stored value stays the override's, the fresh result is recorded as the
// would-be value, and an accepted override that now matches converges.
func (e *Evaluator) applyShielded(ctx context.Context, def *config.FieldDef, o *override.Override, wouldBe cty.Value, directEdits map[string]bool, result *Result) {
	logger := ctxlog.FromContext(ctx)
	o.WouldBe = wouldBe

	if o.State == override.StateAccepted && value.Equal(wouldBe, o.Value) {
		from := o.State
		to := override.Converge(directEdits, def.Formula.Dependencies)
		if err := e.overrides.Transition(def.ID, to); err != nil {
			// Accepted -> Synced* is always in the transition table.
			panic(fmt.Sprintf("cascade: convergence transition rejected: %v", err))
		}
		logger.Debug("Override converged with formula result.",
			"field", def.ID, "from", from, "to", to)
		result.OverrideChanges = append(result.OverrideChanges, StateChange{
			FieldID: def.ID,
			From:    from,
			To:      to,
		})
	}

	// The effective value remains the override's regardless of convergence.
	if err := e.store.Set(def.ID, o.Value); err != nil {
		panic(fmt.Sprintf("cascade: overridden field %q missing from store: %v", def.ID, err))
	}
}

// evalFormula evaluates one formula against the current store. Any
// evaluation failure, including panics from degenerate arithmetic such as
// 0/0, becomes an error-marked value for the field.
func (e *Evaluator) evalFormula(def *config.FieldDef) (val cty.Value, runtimeErr *RuntimeError) {
	defer func() {
		if r := recover(); r != nil {
			runtimeErr = &RuntimeError{FieldID: def.ID, Message: fmt.Sprintf("%v", r)}
			val = value.ErrorVal(def.Kind.CtyType(), runtimeErr.Message)
		}
	}()

	evalCtx := &hcl.EvalContext{
		Variables: e.scope(def.Formula.Dependencies),
		Functions: e.funcs,
	}

	raw, diags := def.Formula.Expression.Value(evalCtx)
	if diags.HasErrors() {
		msg := diags[0].Summary
		if diags[0].Detail != "" {
			msg = fmt.Sprintf("%s: %s", diags[0].Summary, diags[0].Detail)
		}
		return value.ErrorVal(def.Kind.CtyType(), msg), &RuntimeError{FieldID: def.ID, Message: msg}
	}

	converted, err := def.Kind.Convert(raw)
	if err != nil {
		return value.ErrorVal(def.Kind.CtyType(), err.Error()), &RuntimeError{FieldID: def.ID, Message: err.Error()}
	}
	return converted, nil
}

// scope builds the variable scope for one formula: the current value of each
// dependency, straight from the store.
func (e *Evaluator) scope(deps []string) map[string]cty.Value {
	vars := make(map[string]cty.Value, len(deps))
	for _, dep := range deps {
		vars[dep] = e.store.MustGet(dep)
	}
	return vars
}
