package config

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/formwright/internal/value"
)

// Model is the unified, format-agnostic representation of one project schema:
// every field the project holds, every formula, every validation constraint.
// It is immutable after loading.
type Model struct {
	Fields      map[string]*FieldDef
	Constraints []*ConstraintDef
}

// FieldDef describes one field of the project. A field with a non-nil
// Formula is computed; all other fields hold raw user input.
type FieldDef struct {
	ID      string
	Kind    value.Kind
	Default *cty.Value
	Formula *FormulaDef
}

// Computed reports whether this field's value is produced by a formula.
func (f *FieldDef) Computed() bool {
	return f.Formula != nil
}

// InitialValue returns the value a field holds when a project is first
// opened: its declared default, or the null value of its kind.
func (f *FieldDef) InitialValue() cty.Value {
	if f.Default != nil {
		return *f.Default
	}
	return f.Kind.Null()
}

// FormulaDef belongs to exactly one computed field. It holds the expression
// and the statically-resolved set of field IDs the expression references.
// Immutable once loaded.
type FormulaDef struct {
	FieldID      string
	Expression   hcl.Expression
	Dependencies []string
}

// Severity classifies a validation constraint violation.
type Severity string

const (
	// SeverityError blocks dependent workflow (document generation).
	SeverityError Severity = "error"
	// SeverityWarning needs user confirmation but never blocks.
	SeverityWarning Severity = "warning"
	// SeverityInfo is advisory only.
	SeverityInfo Severity = "info"
)

// SeverityFromString parses a schema severity tag.
func SeverityFromString(s string) (Severity, error) {
	switch sv := Severity(s); sv {
	case SeverityError, SeverityWarning, SeverityInfo:
		return sv, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// ConstraintDef declares one validation rule against one field. The Rule key
// selects a registered rule implementation; Params carries the rule's
// schema-supplied arguments (bounds, pattern, allowed values).
type ConstraintDef struct {
	ID       string
	FieldID  string
	Rule     string
	Severity Severity
	Params   RuleParams
}

// RuleParams holds the optional arguments a constraint block may supply.
// Which of them are meaningful depends on the rule.
type RuleParams struct {
	Min     *cty.Value
	Max     *cty.Value
	MinLen  *int
	MaxLen  *int
	Pattern string
	OneOf   []cty.Value
}

// UnknownFieldError reports a formula or constraint referring to a field ID
// that is not part of the schema. It is fatal at load time.
type UnknownFieldError struct {
	FieldID  string
	Referrer string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s refers to unknown field %q", e.Referrer, e.FieldID)
}

// Validate checks the internal consistency of a loaded model: formulas and
// constraints may only reference declared fields, and only computed fields
// carry formulas. It is called by every Loader before the model is returned.
func (m *Model) Validate() error {
	for _, f := range m.sortedFields() {
		if f.Formula == nil {
			continue
		}
		for _, dep := range f.Formula.Dependencies {
			if _, ok := m.Fields[dep]; !ok {
				return &UnknownFieldError{FieldID: dep, Referrer: fmt.Sprintf("formula of field %q", f.ID)}
			}
		}
	}
	for _, c := range m.Constraints {
		if _, ok := m.Fields[c.FieldID]; !ok {
			return &UnknownFieldError{FieldID: c.FieldID, Referrer: fmt.Sprintf("constraint %q", c.ID)}
		}
	}
	return nil
}

// sortedFields returns the field definitions in stable ID order.
func (m *Model) sortedFields() []*FieldDef {
	out := make([]*FieldDef, 0, len(m.Fields))
	for _, f := range m.Fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Formulas returns every formula definition in stable field-ID order.
func (m *Model) Formulas() []*FormulaDef {
	var out []*FormulaDef
	for _, f := range m.sortedFields() {
		if f.Formula != nil {
			out = append(out, f.Formula)
		}
	}
	return out
}
