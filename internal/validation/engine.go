package validation

import (
	"fmt"
	"regexp"

	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/fieldstore"
)

// Violation is one failed constraint check.
type Violation struct {
	ConstraintID string
	FieldID      string
	Rule         string
	Severity     config.Severity
	Message      string
}

// Result aggregates the violations of one validation pass.
type Result struct {
	Violations []Violation
}

// BlocksWorkflow reports whether at least one error-severity violation
// exists. Warnings and infos never block; any confirmation gating on them is
// a presentation concern.
func (r *Result) BlocksWorkflow() bool {
	for _, v := range r.Violations {
		if v.Severity == config.SeverityError {
			return true
		}
	}
	return false
}

// ForField returns the violations recorded against one field.
func (r *Result) ForField(fieldID string) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.FieldID == fieldID {
			out = append(out, v)
		}
	}
	return out
}

// Engine evaluates a fixed set of schema constraints. Construction resolves
// every rule key against the rule table and pre-checks rule parameters, so
// Validate itself cannot fail.
type Engine struct {
	constraints []*config.ConstraintDef
}

// NewEngine builds an engine for the model's constraints. Unknown rule keys
// and unparseable patterns are schema errors, fatal at load time.
func NewEngine(model *config.Model) (*Engine, error) {
	for _, c := range model.Constraints {
		if _, ok := lookupRule(c.Rule); !ok {
			return nil, fmt.Errorf("constraint %q uses unknown rule %q", c.ID, c.Rule)
		}
		if c.Rule == "pattern" {
			if _, err := regexp.Compile(c.Params.Pattern); err != nil {
				return nil, fmt.Errorf("constraint %q has invalid pattern: %w", c.ID, err)
			}
		}
	}
	return &Engine{constraints: model.Constraints}, nil
}

// Validate checks every constraint against the current store values. It is
// pure: no mutation, no caching.
func (e *Engine) Validate(store *fieldstore.Store) *Result {
	result := &Result{}
	for _, c := range e.constraints {
		rule, ok := lookupRule(c.Rule)
		if !ok {
			panic(fmt.Sprintf("validation: rule %q vanished after engine construction", c.Rule))
		}
		passed, message := rule(store.MustGet(c.FieldID), c.Params)
		if !passed {
			result.Violations = append(result.Violations, Violation{
				ConstraintID: c.ID,
				FieldID:      c.FieldID,
				Rule:         c.Rule,
				Severity:     c.Severity,
				Message:      message,
			})
		}
	}
	return result
}
