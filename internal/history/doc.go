// Package history implements the reversible-command engine. Every mutating
// user action is reified as a Command holding the minimal forward and
// inverse mutation: a raw value edit or an override lifecycle change, never
// a snapshot of computed fields. Undo and redo replay the inverse or forward
// mutation and then re-enter the cascade, so computed state is always
// re-derived rather than restored from a cache.
//
// Automatic override convergence performed by a command's forward cascade is
// recorded on that command and rolled back by its undo. Convergence that
// happens during the cascade of an undo itself is not recorded anywhere: an
// undo is not a command, so the state flip cannot be undone in isolation.
// The next forward command recaptures convergence from current state, which
// keeps replay consistent.
package history
