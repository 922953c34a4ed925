package config

import "context"

// Loader is the interface for a format-specific schema loader. The core only
// ever sees the agnostic Model; parsing, expression analysis, and translation
// are the loader's job.
type Loader interface {
	// Load reads a project schema from the given paths and translates it
	// into the format-agnostic model. Implementations must return a model
	// that passes Model.Validate.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
