package app

import (
	"errors"
	"fmt"
)

// Run modes supported by the CLI entrypoint.
const (
	ModeValidate = "validate" // load the schema, run one validation pass, report
	ModeEval     = "eval"     // additionally derive and print every field value
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SchemaPath string // hcl file or directory of hcl files
	Mode       string

	LogFormat string
	LogLevel  string
	UndoLimit int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.SchemaPath == "" {
		return nil, errors.New("SchemaPath is a required configuration field and cannot be empty")
	}

	switch cfg.Mode {
	case ModeValidate, ModeEval:
	default:
		return nil, fmt.Errorf("invalid mode %q: must be %q or %q", cfg.Mode, ModeValidate, ModeEval)
	}

	return &cfg, nil
}
