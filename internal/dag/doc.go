// Package dag builds and queries the static dependency graph between fields.
// Formula targets depend on the fields their expressions reference; the graph
// answers which computed fields a change reaches (the cascade closure) and in
// which order they must be recomputed.
//
// The graph is derived from the schema at project load and read-only
// afterwards, so it carries no internal locking.
package dag
