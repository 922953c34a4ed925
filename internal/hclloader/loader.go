package hclloader

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/ctxlog"
	"github.com/specialistvlad/formwright/internal/fsutil"
	"github.com/specialistvlad/formwright/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL schema loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every .hcl schema file reachable from the given paths, merges
// their blocks, and translates them into one format-agnostic model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var filePaths []string
	for _, p := range paths {
		found, err := fsutil.CollectFilesByExtension(p, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve schema path %s: %w", p, err)
		}
		filePaths = append(filePaths, found...)
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no .hcl schema files found in %v", paths)
	}
	logger.Debug("Found schema files to load.", "files", filePaths)

	parser := hclparse.NewParser()
	merged := &schema.Project{}

	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse schema file %s: %w", filePath, diags)
		}

		var project schema.Project
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &project); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode schema file %s: %w", filePath, diags)
		}
		merged.Fields = append(merged.Fields, project.Fields...)
		merged.Constraints = append(merged.Constraints, project.Constraints...)
		logger.Debug("Loaded schema file.", "file", filePath,
			"fields", len(project.Fields), "constraints", len(project.Constraints))
	}

	model, err := l.translate(ctx, merged)
	if err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Schema loaded successfully.",
		"field_count", len(model.Fields), "constraint_count", len(model.Constraints))
	return model, nil
}
