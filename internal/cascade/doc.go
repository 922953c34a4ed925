// Package cascade recomputes computed fields after an edit. Given the set of
// directly changed fields it takes the dependent closure from the dependency
// graph, visits it in topological order, and re-evaluates each formula
// against the current field store.
//
// Fields under a shielding override keep their override value; the freshly
// computed "would-be" result is recorded on the override and fed to the
// convergence predicate. A formula that fails at runtime yields an
// error-marked value for its field instead of aborting the cascade, and the
// mark propagates to dependents through evaluation.
package cascade
