// Package validation evaluates schema-declared constraints against current
// field values. Each violation carries the constraint, the field, and a
// severity; only error-severity violations block dependent workflow.
// Validation is pure and is re-run after every cascade, never cached across
// mutations.
package validation
