package hclloader

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/ctxlog"
	"github.com/specialistvlad/formwright/internal/schema"
	"github.com/specialistvlad/formwright/internal/value"
)

// translate converts the merged HCL schema into the agnostic config model.
func (l *Loader) translate(ctx context.Context, project *schema.Project) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	model := &config.Model{Fields: make(map[string]*config.FieldDef)}

	for _, f := range project.Fields {
		if _, exists := model.Fields[f.ID]; exists {
			return nil, fmt.Errorf("duplicate field definition %q", f.ID)
		}
		def, err := l.translateField(f)
		if err != nil {
			return nil, err
		}
		model.Fields[f.ID] = def
		logger.Debug("Translated field definition.", "field", f.ID, "computed", def.Computed())
	}

	for _, c := range project.Constraints {
		def, err := l.translateConstraint(c)
		if err != nil {
			return nil, err
		}
		model.Constraints = append(model.Constraints, def)
	}

	return model, nil
}

func (l *Loader) translateField(f *schema.Field) (*config.FieldDef, error) {
	kind, err := value.KindFromString(f.Kind)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.ID, err)
	}

	attrs, err := attrExpressions(f.Remain, fmt.Sprintf("field %q", f.ID), "default", "formula")
	if err != nil {
		return nil, err
	}

	def := &config.FieldDef{ID: f.ID, Kind: kind}

	if expr, ok := attrs["default"]; ok {
		raw, err := literalValue(expr, fmt.Sprintf("default of field %q", f.ID))
		if err != nil {
			return nil, err
		}
		converted, err := kind.Convert(raw)
		if err != nil {
			return nil, fmt.Errorf("default of field %q: %w", f.ID, err)
		}
		def.Default = &converted
	}

	if expr, ok := attrs["formula"]; ok {
		if def.Default != nil {
			return nil, fmt.Errorf("field %q declares both a default and a formula", f.ID)
		}
		def.Formula = &config.FormulaDef{
			FieldID:      f.ID,
			Expression:   expr,
			Dependencies: referencedFields(expr),
		}
	}

	return def, nil
}

func (l *Loader) translateConstraint(c *schema.Constraint) (*config.ConstraintDef, error) {
	severity := config.SeverityError
	if c.Severity != "" {
		var err error
		severity, err = config.SeverityFromString(c.Severity)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", c.ID, err)
		}
	}

	attrs, err := attrExpressions(c.Remain, fmt.Sprintf("constraint %q", c.ID), "min", "max", "one_of")
	if err != nil {
		return nil, err
	}

	def := &config.ConstraintDef{
		ID:       c.ID,
		FieldID:  c.Field,
		Rule:     c.Rule,
		Severity: severity,
		Params: config.RuleParams{
			MinLen:  c.MinLen,
			MaxLen:  c.MaxLen,
			Pattern: c.Pattern,
		},
	}

	if expr, ok := attrs["min"]; ok {
		v, err := literalValue(expr, fmt.Sprintf("min of constraint %q", c.ID))
		if err != nil {
			return nil, err
		}
		def.Params.Min = &v
	}
	if expr, ok := attrs["max"]; ok {
		v, err := literalValue(expr, fmt.Sprintf("max of constraint %q", c.ID))
		if err != nil {
			return nil, err
		}
		def.Params.Max = &v
	}
	if expr, ok := attrs["one_of"]; ok {
		v, err := literalValue(expr, fmt.Sprintf("one_of of constraint %q", c.ID))
		if err != nil {
			return nil, err
		}
		if !v.Type().IsTupleType() && !v.Type().IsListType() {
			return nil, fmt.Errorf("one_of of constraint %q must be a list", c.ID)
		}
		it := v.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			def.Params.OneOf = append(def.Params.OneOf, ev)
		}
	}

	return def, nil
}

// attrExpressions reads the expression attributes left over after gohcl
// decoding. Only the allowed names may appear; an attribute the block does
// not supply is simply missing from the returned map.
func attrExpressions(body hcl.Body, where string, allowed ...string) (map[string]hcl.Expression, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", where, diags)
	}

	known := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		known[name] = true
	}

	out := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		if !known[name] {
			return nil, fmt.Errorf("%s: unsupported attribute %q", where, name)
		}
		out[name] = attr.Expr
	}
	return out, nil
}

// literalValue evaluates a schema attribute that must not reference fields,
// such as a default value or a rule bound.
func literalValue(expr hcl.Expression, what string) (cty.Value, error) {
	if len(expr.Variables()) > 0 {
		return cty.NilVal, fmt.Errorf("%s must be a literal value", what)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("%s: %w", what, diags)
	}
	return v, nil
}

// referencedFields extracts the unique, sorted set of field IDs a formula
// expression reads. Fields are referenced by their bare ID, so the root name
// of each variable traversal is the dependency.
func referencedFields(expr hcl.Expression) []string {
	seen := make(map[string]bool)
	for _, traversal := range expr.Variables() {
		seen[traversal.RootName()] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
