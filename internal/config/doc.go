// Package config defines the format-agnostic project schema model: field
// definitions, formula definitions, and validation constraints, along with
// the Loader interface for reading a schema from a concrete source format.
//
// The config.Model is the single source of truth for the dag, cascade, and
// validation packages. The shipped HCL implementation of Loader lives in the
// hclloader package.
package config
