// Package hclloader provides the concrete HCL implementation of the
// config.Loader interface. It parses project schema files, analyzes formula
// expressions to resolve their static dependency sets, and translates the
// result into the format-agnostic config model.
package hclloader
