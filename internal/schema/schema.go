// Package schema defines the HCL block structures for project schema files.
// These structs mirror the on-disk format exactly; translation into the
// format-agnostic config model happens in the hclloader package.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Field represents a `field` block from a project schema file. A field with
// a `formula` attribute is computed; everything else is raw user input.
//
// The `default` and `formula` attributes are not declared as struct fields:
// gohcl substitutes a synthetic null expression for an absent optional
// expression attribute, which would make "not supplied" indistinguishable
// from "supplied". They are read out of Remain instead, where an absent
// attribute is simply absent.
type Field struct {
	ID     string   `hcl:"id,label"`
	Kind   string   `hcl:"kind"`
	Remain hcl.Body `hcl:",remain"`
}

// Constraint represents a `constraint` block: one validation rule bound to
// one field. The rule-specific attributes (min, max, pattern, ...) are only
// meaningful for the rules that read them. The expression-valued bounds
// (min, max, one_of) live in Remain for the same reason as Field's formula.
type Constraint struct {
	ID       string   `hcl:"id,label"`
	Field    string   `hcl:"field"`
	Rule     string   `hcl:"rule"`
	Severity string   `hcl:"severity,optional"`
	MinLen   *int     `hcl:"min_len,optional"`
	MaxLen   *int     `hcl:"max_len,optional"`
	Pattern  string   `hcl:"pattern,optional"`
	Remain   hcl.Body `hcl:",remain"`
}

// Project represents the top-level structure of a project schema file.
type Project struct {
	Fields      []*Field      `hcl:"field,block"`
	Constraints []*Constraint `hcl:"constraint,block"`
}
